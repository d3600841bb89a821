// Package services – Admitter
//
// Admitter decides whether a view attempt is counted. Two TTL-bound gates live
// in the key-value store:
//
//   - dup:{session}:{post}  duplicate window; existence rejects with DuplicateView.
//   - rate:{addr}:{post}    hourly ceiling; the post-increment value above Limit
//     rejects with RateLimitExceeded. The counter is never decremented.
//
// The duplicate gate is checked first so a repeat from the same session does
// not consume rate budget. On admission the duplicate marker is stamped with
// SET NX; losing that race to a concurrent request reports DuplicateView.
package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-engagement-backend/internal/domain"
	"github.com/tbourn/go-engagement-backend/internal/kv"
)

// AdmissionStore is the subset of the key-value store the gates need.
// Implemented by *kv.Client.
type AdmissionStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error)
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// Admitter applies the duplicate and rate gates.
type Admitter struct {
	Store       AdmissionStore
	Limit       int           // admitted attempts per (addr, post) per RateWindow
	RateWindow  time.Duration // e.g. 1h
	DedupWindow time.Duration // e.g. 30m
}

// Admit returns the verdict for one attempt. Store failures are returned
// wrapped in ErrLimiterUnavailable; the caller must not record the view.
func (a *Admitter) Admit(ctx context.Context, addr, sessionID, postID string) (domain.Admission, error) {
	tr := otel.Tracer("services/Admitter")
	ctx, span := tr.Start(ctx, "Admit",
		trace.WithAttributes(
			attribute.String("post.id", postID),
			attribute.String("session.id", sessionID),
		),
	)
	defer span.End()

	dupKey := kv.DupKey(sessionID, postID)
	seen, err := a.Store.Exists(ctx, dupKey)
	if err != nil {
		span.RecordError(err)
		return domain.Admission{}, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	if seen {
		return domain.Reject(domain.ReasonDuplicateView), nil
	}

	n, err := a.Store.IncrWithExpiry(ctx, kv.RateKey(addr, postID), a.RateWindow)
	if err != nil {
		span.RecordError(err)
		return domain.Admission{}, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	span.SetAttributes(attribute.Int64("rate.count", n))
	if n > int64(a.Limit) {
		return domain.Reject(domain.ReasonRateLimitExceeded), nil
	}

	fresh, err := a.Store.SetNX(ctx, dupKey, a.DedupWindow)
	if err != nil {
		span.RecordError(err)
		return domain.Admission{}, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	if !fresh {
		return domain.Reject(domain.ReasonDuplicateView), nil
	}
	return domain.Admit(), nil
}

// Release clears the duplicate marker so a view whose write failed can be
// retried by the next page load.
func (a *Admitter) Release(ctx context.Context, sessionID, postID string) error {
	return a.Store.Del(ctx, kv.DupKey(sessionID, postID))
}

// Package services – StatsService
//
// StatsService serves and maintains the denormalized PostStats aggregate.
//
// Read path (Get): cache stats:{post} -> persisted row -> full derivation.
// Concurrent misses for the same post share one load via singleflight. A
// persisted row whose TotalLikes disagrees with the like rows is rebuilt
// before it is served.
//
// Write path (Recompute): full derivation from ViewEvent/LikeRecord, whole-row
// upsert, then cache refresh. Every component that changes the aggregate goes
// through Recompute; nothing increments stats fields in place.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/tbourn/go-engagement-backend/internal/domain"
	"github.com/tbourn/go-engagement-backend/internal/kv"
	"github.com/tbourn/go-engagement-backend/internal/repo"
)

// Cache is the JSON cache used for stats and trending. Implemented by *kv.Client.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// StatsService implements getStats/recompute.
type StatsService struct {
	// DB is the database handle used for derivation and persistence.
	DB *gorm.DB
	// Cache holds stats:{post} entries for TTL.
	Cache Cache
	TTL   time.Duration
	// LoadTimeout bounds a shared cache-miss load; zero means defaultLoadTimeout.
	LoadTimeout time.Duration

	group singleflight.Group
}

const defaultLoadTimeout = 5 * time.Second

// sharedContext detaches a singleflight load from the caller that started
// it, so one disconnecting client does not fail every waiter on the flight.
func sharedContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultLoadTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), d)
}

// Get returns the aggregate for postID, preferring the cache.
//
// Errors:
//   - ErrInvalidPostID for a malformed id.
//   - ErrStatsUnavailable when nothing is cached or persisted and the
//     derivation failed.
func (s *StatsService) Get(ctx context.Context, postID string) (*domain.PostStats, error) {
	tr := otel.Tracer("services/StatsService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.String("post.id", postID)),
	)
	defer span.End()

	if !validPostID(postID) {
		return nil, ErrInvalidPostID
	}

	var cached domain.PostStats
	hit, err := s.Cache.GetJSON(ctx, kv.StatsKey(postID), &cached)
	switch {
	case err != nil:
		statsCache.WithLabelValues("error").Inc()
		logFrom(ctx).Warn().Err(err).Str("post_id", postID).Msg("stats cache read failed")
	case hit:
		statsCache.WithLabelValues("hit").Inc()
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return &cached, nil
	default:
		statsCache.WithLabelValues("miss").Inc()
	}

	v, err, _ := s.group.Do(postID, func() (any, error) {
		lctx, cancel := sharedContext(ctx, s.LoadTimeout)
		defer cancel()
		return s.load(lctx, postID)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	st := *v.(*domain.PostStats)
	return &st, nil
}

// load serves a cache miss from the persisted row, deriving it when absent.
func (s *StatsService) load(ctx context.Context, postID string) (*domain.PostStats, error) {
	st, err := repo.GetStats(ctx, s.DB, postID)
	if err == nil {
		return s.reconcile(ctx, st), nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		logFrom(ctx).Warn().Err(err).Str("post_id", postID).Msg("stats row read failed, deriving")
	}

	fresh, derr := s.Recompute(ctx, postID)
	if derr != nil {
		return nil, fmt.Errorf("%w: %v", ErrStatsUnavailable, derr)
	}
	return fresh, nil
}

// reconcile checks the row's like count against the like rows. A mismatch
// triggers a recompute; if that fails the recounted value is served uncached.
func (s *StatsService) reconcile(ctx context.Context, st *domain.PostStats) *domain.PostStats {
	n, err := repo.CountLikes(ctx, s.DB, st.PostID)
	if err != nil || n == st.TotalLikes {
		s.store(ctx, st)
		return st
	}
	logFrom(ctx).Info().Str("post_id", st.PostID).
		Int64("persisted", st.TotalLikes).Int64("counted", n).
		Msg("stale like count, recomputing")
	fresh, err := s.Recompute(ctx, st.PostID)
	if err == nil {
		return fresh
	}
	logFrom(ctx).Warn().Err(err).Str("post_id", st.PostID).Msg("reconcile recompute failed")
	st.TotalLikes = n
	return st
}

// Recompute derives the aggregate from scratch, replaces the persisted row
// and refreshes the cache. Repeated calls over the same rows yield the same
// counters.
func (s *StatsService) Recompute(ctx context.Context, postID string) (*domain.PostStats, error) {
	tr := otel.Tracer("services/StatsService")
	ctx, span := tr.Start(ctx, "Recompute",
		trace.WithAttributes(attribute.String("post.id", postID)),
	)
	defer span.End()

	if !validPostID(postID) {
		return nil, ErrInvalidPostID
	}

	start := time.Now()
	st, err := repo.DeriveStats(ctx, s.DB, postID)
	recomputeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := repo.UpsertStats(ctx, s.DB, &st); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.store(ctx, &st)

	span.SetAttributes(
		attribute.Int64("views.total", st.TotalViews),
		attribute.Int64("likes.total", st.TotalLikes),
	)
	return &st, nil
}

// Invalidate drops the cached aggregate; the next Get reloads it.
func (s *StatsService) Invalidate(ctx context.Context, postID string) {
	if err := s.Cache.Del(ctx, kv.StatsKey(postID)); err != nil {
		logFrom(ctx).Warn().Err(err).Str("post_id", postID).Msg("stats cache invalidate failed")
	}
}

// store writes st to the cache. On failure the key is dropped so a stale
// entry cannot outlive the persisted row.
func (s *StatsService) store(ctx context.Context, st *domain.PostStats) {
	if err := s.Cache.SetJSON(ctx, kv.StatsKey(st.PostID), st, s.TTL); err != nil {
		logFrom(ctx).Warn().Err(err).Str("post_id", st.PostID).Msg("stats cache write failed")
		s.Invalidate(ctx, st.PostID)
	}
}

// Package services – EngagementService
//
// EngagementService accumulates scroll/time/click beacons per (session, post).
// The merge runs in the database (see repo.UpsertEngagement), so concurrent
// or out-of-order beacons can only move scroll depth forward.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-engagement-backend/internal/domain"
	"github.com/tbourn/go-engagement-backend/internal/repo"
)

// EngagementService implements trackEngagement.
type EngagementService struct {
	DB *gorm.DB
	// Stats, when set, has its cached aggregate dropped after each beacon.
	Stats   *StatsService
	Timeout time.Duration
}

// Track merges one beacon. userID is optional.
//
// Errors:
//   - ErrInvalidPostID, ErrInvalidSession, ErrInvalidMetrics for bad input.
//   - ErrTrackingDegraded wrapping a persistence failure.
func (s *EngagementService) Track(ctx context.Context, sessionID, postID string, m domain.EngagementMetrics, userID *string) error {
	tr := otel.Tracer("services/EngagementService")
	ctx, span := tr.Start(ctx, "Track",
		trace.WithAttributes(
			attribute.String("post.id", postID),
			attribute.String("session.id", sessionID),
			attribute.Float64("engagement.scroll", m.ScrollDepthPercent),
		),
	)
	defer span.End()

	if !validPostID(postID) {
		return ErrInvalidPostID
	}
	sessionID = strings.TrimSpace(sessionID)
	if !ValidSessionToken(sessionID) {
		return ErrInvalidSession
	}
	if !m.Valid() {
		return ErrInvalidMetrics
	}
	if userID != nil && strings.TrimSpace(*userID) == "" {
		userID = nil
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	if err := repo.UpsertEngagement(ctx, s.DB, sessionID, postID, userID, m); err != nil {
		span.RecordError(err)
		trackingDegraded.WithLabelValues("engagement").Inc()
		logFrom(ctx).Warn().Err(err).
			Str("post_id", postID).
			Str("session_id", sessionID).
			Msg("engagement tracking degraded")
		return fmt.Errorf("%w: %v", ErrTrackingDegraded, err)
	}
	if s.Stats != nil {
		s.Stats.Invalidate(ctx, postID)
	}
	return nil
}

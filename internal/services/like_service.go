// Package services – LikeService
//
// LikeService toggles the per-user like state of a post. The existence of a
// LikeRecord row is the liked state. After every toggle the like count is
// re-read from the rows (never incremented) and the aggregate is rebuilt
// through StatsService.Recompute. When that inline rebuild fails the post is
// handed to the background queue so the persisted row catches up.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-engagement-backend/internal/domain"
	"github.com/tbourn/go-engagement-backend/internal/repo"
)

// LikeService implements toggleLike.
type LikeService struct {
	DB    *gorm.DB
	Stats *StatsService
	// Recompute retries a failed inline rebuild off the request path. Optional.
	Recompute Enqueuer
}

// Toggle flips the like of userID on postID and returns the new state with
// the recounted total.
//
// Errors:
//   - ErrUnauthorized when userID is empty; nothing is mutated.
//   - ErrInvalidPostID for a malformed id.
//   - ErrTrackingDegraded wrapping a persistence failure.
func (s *LikeService) Toggle(ctx context.Context, postID, userID string) (domain.LikeResult, error) {
	tr := otel.Tracer("services/LikeService")
	ctx, span := tr.Start(ctx, "Toggle",
		trace.WithAttributes(
			attribute.String("post.id", postID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.LikeResult{}, ErrUnauthorized
	}
	if !validPostID(postID) {
		return domain.LikeResult{}, ErrInvalidPostID
	}

	var liked bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := repo.FindLike(ctx, tx, postID, userID)
		switch {
		case err == nil:
			// A concurrent unlike may have won; either way the state is "not liked".
			if derr := repo.DeleteLike(ctx, tx, postID, userID); derr != nil && !errors.Is(derr, repo.ErrNotFound) {
				return derr
			}
			liked = false
			return nil
		case errors.Is(err, repo.ErrNotFound):
			// A concurrent like may have won; the row exists either way.
			if cerr := repo.CreateLike(ctx, tx, postID, userID); cerr != nil && !errors.Is(cerr, repo.ErrDuplicate) {
				return cerr
			}
			liked = true
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return s.degraded(ctx, span, err, postID)
	}

	count, err := repo.CountLikes(ctx, s.DB, postID)
	if err != nil {
		return s.degraded(ctx, span, err, postID)
	}

	if _, err := s.Stats.Recompute(ctx, postID); err != nil {
		logFrom(ctx).Warn().Err(err).Str("post_id", postID).Msg("stats refresh after like failed")
		s.Stats.Invalidate(ctx, postID)
		if s.Recompute != nil && !s.Recompute.Enqueue(postID) {
			logFrom(ctx).Warn().Str("post_id", postID).Msg("stats retry dropped, reconciled on next read")
		}
	}

	span.SetAttributes(attribute.Bool("like.liked", liked), attribute.Int64("like.count", count))
	return domain.LikeResult{Liked: liked, LikeCount: count}, nil
}

func (s *LikeService) degraded(ctx context.Context, span trace.Span, err error, postID string) (domain.LikeResult, error) {
	span.RecordError(err)
	trackingDegraded.WithLabelValues("like").Inc()
	logFrom(ctx).Warn().Err(err).Str("post_id", postID).Msg("like toggle failed")
	return domain.LikeResult{}, fmt.Errorf("%w: %v", ErrTrackingDegraded, err)
}

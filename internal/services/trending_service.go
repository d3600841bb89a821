// Package services – TrendingService
//
// TrendingService serves the "popular posts" ranking. The top Max entries are
// computed over the recent Window and cached under a single key for TTL.
// Individual views and likes do not invalidate it; the ranking lags by up to
// one TTL.
package services

import (
	"context"
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
	"github.com/tbourn/go-engagement-backend/internal/utils"
)

// DefaultTrendingLimit is used when the caller asks for limit <= 0.
const DefaultTrendingLimit = 10

// TrendingService implements getTrending.
type TrendingService struct {
	DB     *gorm.DB
	Cache  Cache
	TTL    time.Duration // e.g. 1h
	Window time.Duration // e.g. 7 days
	Max    int           // ranking size kept in cache
	// LoadTimeout bounds a shared refresh on a cache miss.
	LoadTimeout time.Duration

	// Now is the clock; nil means time.Now.
	Now func() time.Time

	group singleflight.Group
}

// Get returns up to limit ranked posts. limit is clamped to [1, Max].
func (s *TrendingService) Get(ctx context.Context, limit int) ([]domain.TrendingPost, error) {
	tr := otel.Tracer("services/TrendingService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.Int("limit", limit)),
	)
	defer span.End()

	limit = s.clamp(limit)

	var ranked []domain.TrendingPost
	hit, err := s.Cache.GetJSON(ctx, kv.TrendingKey, &ranked)
	if err != nil {
		logFrom(ctx).Warn().Err(err).Msg("trending cache read failed")
	}
	if !hit {
		v, err, _ := s.group.Do(kv.TrendingKey, func() (any, error) {
			rctx, cancel := sharedContext(ctx, s.LoadTimeout)
			defer cancel()
			return s.Refresh(rctx)
		})
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("%w: %v", ErrStatsUnavailable, err)
		}
		ranked = v.([]domain.TrendingPost)
	}
	span.SetAttributes(attribute.Bool("cache.hit", hit))

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]domain.TrendingPost, len(ranked))
	copy(out, ranked)
	return out, nil
}

// Refresh recomputes the full ranking and overwrites the cache entry.
func (s *TrendingService) Refresh(ctx context.Context) ([]domain.TrendingPost, error) {
	since := s.now().Add(-s.Window)
	ranked, err := repo.TopTrending(ctx, s.DB, since, s.max())
	if err != nil {
		return nil, err
	}
	if err := s.Cache.SetJSON(ctx, kv.TrendingKey, ranked, s.TTL); err != nil {
		logFrom(ctx).Warn().Err(err).Msg("trending cache write failed")
	}
	return ranked, nil
}

func (s *TrendingService) clamp(limit int) int {
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	return utils.ClampInt(limit, 1, s.max())
}

func (s *TrendingService) max() int {
	if s.Max < 1 {
		return 100
	}
	return s.Max
}

func (s *TrendingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

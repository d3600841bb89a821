package httpapi

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-engagement-backend/internal/config"
	"github.com/tbourn/go-engagement-backend/internal/kv"
	"github.com/tbourn/go-engagement-backend/internal/repo"
	"github.com/tbourn/go-engagement-backend/internal/services"
)

// App holds the engagement services wired over one database handle and one
// key-value client. The caller owns DB and KV; App owns the recompute queue.
type App struct {
	DB *gorm.DB
	KV *kv.Client

	Views      *services.ViewService
	Likes      *services.LikeService
	Engagement *services.EngagementService
	Stats      *services.StatsService
	Trending   *services.TrendingService
	Queue      *services.RecomputeQueue
}

// NewApp wires the services from the tracking configuration. Call Start
// before serving and Stop during shutdown.
func NewApp(db *gorm.DB, store *kv.Client, tc config.TrackingConfig) *App {
	stats := &services.StatsService{DB: db, Cache: store, TTL: tc.StatsCacheTTL, LoadTimeout: tc.RecomputeTimeout}
	queue := services.NewRecomputeQueue(stats, tc.RecomputeWorkers, tc.RecomputeQueueSize, tc.RecomputeTimeout)

	return &App{
		DB: db,
		KV: store,
		Views: &services.ViewService{
			DB: db,
			Admitter: &services.Admitter{
				Store:       store,
				Limit:       tc.ViewRateLimit,
				RateWindow:  tc.ViewRateWindow,
				DedupWindow: tc.DedupWindow,
			},
			Bots:      services.NewBotClassifier(services.DefaultBotPatterns),
			Recompute: queue,
			Timeout:   tc.TrackTimeout,
		},
		Likes:      &services.LikeService{DB: db, Stats: stats, Recompute: queue},
		Engagement: &services.EngagementService{DB: db, Stats: stats, Timeout: tc.TrackTimeout},
		Stats:      stats,
		Trending: &services.TrendingService{
			DB:     db,
			Cache:  store,
			TTL:    tc.TrendingCacheTTL,
			Window: tc.TrendingWindow,
			Max:    tc.TrendingMax,

			LoadTimeout: tc.RecomputeTimeout,
		},
		Queue: queue,
	}
}

// Start launches the background recompute workers.
func (a *App) Start() { a.Queue.Start() }

// Stop drains the recompute queue within ctx.
func (a *App) Stop(ctx context.Context) error { return a.Queue.Stop(ctx) }

// RecomputeAll rebuilds the aggregate of every post that has views or likes.
// It returns the number of posts rebuilt; failures are joined.
func (a *App) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := repo.ListPostIDs(ctx, a.DB)
	if err != nil {
		return 0, err
	}
	var (
		n    int
		errs []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := a.Stats.Recompute(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// Ready pings the database and the key-value store.
func (a *App) Ready(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}
	return a.KV.Ping(ctx)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-engagement-backend/internal/domain"
	"github.com/tbourn/go-engagement-backend/internal/kv"
	"github.com/tbourn/go-engagement-backend/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestKV(t *testing.T) (*kv.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := kv.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

// syncEnqueuer runs recomputes inline so tests can assert on fresh stats.
type syncEnqueuer struct {
	stats *StatsService
	mu    sync.Mutex
	posts []string
}

func (e *syncEnqueuer) Enqueue(postID string) bool {
	e.mu.Lock()
	e.posts = append(e.posts, postID)
	e.mu.Unlock()
	if e.stats != nil {
		_, _ = e.stats.Recompute(context.Background(), postID)
	}
	return true
}

func (e *syncEnqueuer) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.posts)
}

// pipeline wires the services the way the server does, with an inline queue.
type pipeline struct {
	db     *gorm.DB
	kv     *kv.Client
	mr     *miniredis.Miniredis
	stats  *StatsService
	views  *ViewService
	likes  *LikeService
	engage *EngagementService
	queue  *syncEnqueuer
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	db := newTestDB(t)
	c, mr := newTestKV(t)
	stats := &StatsService{DB: db, Cache: c, TTL: 5 * time.Minute}
	q := &syncEnqueuer{stats: stats}
	return &pipeline{
		db:    db,
		kv:    c,
		mr:    mr,
		stats: stats,
		queue: q,
		views: &ViewService{
			DB:        db,
			Admitter:  &Admitter{Store: c, Limit: 10, RateWindow: time.Hour, DedupWindow: 30 * time.Minute},
			Bots:      NewBotClassifier(DefaultBotPatterns),
			Recompute: q,
			Timeout:   time.Second,
		},
		likes:  &LikeService{DB: db, Stats: stats, Recompute: q},
		engage: &EngagementService{DB: db, Stats: stats, Timeout: time.Second},
	}
}

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

func viewIn(post, session, addr string) domain.ViewInput {
	return domain.ViewInput{PostID: post, SessionToken: session, SourceAddress: addr, UserAgent: chromeUA}
}

var errBoom = errors.New("boom")

// failingStore fails every admission primitive.
type failingStore struct{}

func (failingStore) Exists(context.Context, string) (bool, error) { return false, errBoom }
func (failingStore) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 0, errBoom
}
func (failingStore) SetNX(context.Context, string, time.Duration) (bool, error) { return false, errBoom }
func (failingStore) Del(context.Context, ...string) error                     { return errBoom }

// failingCache fails every cache call.
type failingCache struct{}

func (failingCache) GetJSON(context.Context, string, any) (bool, error)          { return false, errBoom }
func (failingCache) SetJSON(context.Context, string, any, time.Duration) error { return errBoom }
func (failingCache) Del(context.Context, ...string) error                       { return errBoom }

func countViews(t *testing.T, db *gorm.DB, post string) int64 {
	t.Helper()
	n, err := repo.CountViewEvents(context.Background(), db, post)
	if err != nil {
		t.Fatalf("CountViewEvents: %v", err)
	}
	return n
}

// failStatsWritesOnce makes the next INSERT into post_stats fail.
func failStatsWritesOnce(t *testing.T, db *gorm.DB) {
	t.Helper()
	var once sync.Once
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_post_stats_once", func(tx *gorm.DB) {
		if tx.Statement.Table != "post_stats" {
			return
		}
		once.Do(func() { _ = tx.AddError(errBoom) })
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
}

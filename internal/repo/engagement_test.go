package repo

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tbourn/go-engagement-backend/internal/domain"
)

func TestUpsertEngagement_MergeSemantics(t *testing.T) {
	db := newRepoDB(t, true)
	ctx := context.Background()

	first := domain.EngagementMetrics{ScrollDepthPercent: 40, TimeOnPageSeconds: 10, Clicks: 2, Shares: 1}
	if err := UpsertEngagement(ctx, db, "s1", "p1", nil, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	// A late beacon with lower scroll depth must not move it backwards.
	second := domain.EngagementMetrics{ScrollDepthPercent: 25, TimeOnPageSeconds: 30, Clicks: 1, Comments: 1}
	if err := UpsertEngagement(ctx, db, "s1", "p1", strp("u1"), second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	rec, err := GetEngagement(ctx, db, "s1", "p1")
	if err != nil {
		t.Fatalf("GetEngagement: %v", err)
	}
	if rec.ScrollDepthPercent != 40 {
		t.Fatalf("scroll depth = %v; want 40", rec.ScrollDepthPercent)
	}
	if rec.TimeOnPageSeconds != 30 {
		t.Fatalf("time on page = %v; want latest 30", rec.TimeOnPageSeconds)
	}
	if rec.Clicks != 3 || rec.Shares != 1 || rec.Comments != 1 {
		t.Fatalf("counters = %d/%d/%d; want 3/1/1", rec.Clicks, rec.Shares, rec.Comments)
	}
	if rec.UserID == nil || *rec.UserID != "u1" {
		t.Fatalf("user id should be filled from later beacon, got %v", rec.UserID)
	}

	// An anonymous beacon keeps the known user.
	if err := UpsertEngagement(ctx, db, "s1", "p1", nil, domain.EngagementMetrics{ScrollDepthPercent: 90, TimeOnPageSeconds: 31}); err != nil {
		t.Fatalf("third upsert: %v", err)
	}
	rec, _ = GetEngagement(ctx, db, "s1", "p1")
	if rec.ScrollDepthPercent != 90 || rec.UserID == nil || *rec.UserID != "u1" {
		t.Fatalf("after third upsert: %+v", rec)
	}

	var rows int64
	db.Model(&domain.EngagementRecord{}).Count(&rows)
	if rows != 1 {
		t.Fatalf("expected a single merged row, got %d", rows)
	}
}

func TestUpsertEngagement_SameBeaconTwice_ScrollIdempotent(t *testing.T) {
	db := newRepoDB(t, true)
	ctx := context.Background()
	m := domain.EngagementMetrics{ScrollDepthPercent: 55, TimeOnPageSeconds: 12, Clicks: 1}
	for i := 0; i < 2; i++ {
		if err := UpsertEngagement(ctx, db, "s", "p", nil, m); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}
	rec, err := GetEngagement(ctx, db, "s", "p")
	if err != nil {
		t.Fatalf("GetEngagement: %v", err)
	}
	if rec.ScrollDepthPercent != 55 || rec.TimeOnPageSeconds != 12 {
		t.Fatalf("idempotent fields changed: %+v", rec)
	}
	if rec.Clicks != 2 {
		t.Fatalf("client-reported deltas accumulate, want 2 clicks, got %d", rec.Clicks)
	}
}

func TestUpsertEngagement_SeparateKeys(t *testing.T) {
	db := newRepoDB(t, true)
	ctx := context.Background()
	_ = UpsertEngagement(ctx, db, "s1", "p1", nil, domain.EngagementMetrics{ScrollDepthPercent: 10})
	_ = UpsertEngagement(ctx, db, "s2", "p1", nil, domain.EngagementMetrics{ScrollDepthPercent: 20})
	_ = UpsertEngagement(ctx, db, "s1", "p2", nil, domain.EngagementMetrics{ScrollDepthPercent: 30})

	var rows int64
	db.Model(&domain.EngagementRecord{}).Count(&rows)
	if rows != 3 {
		t.Fatalf("expected 3 independent rows, got %d", rows)
	}
	if _, err := GetEngagement(ctx, db, "s9", "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing row: want ErrNotFound, got %v", err)
	}
}

func TestUpsertEngagement_ConcurrentBeaconsLoseNothing(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "engagement.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	ctx := context.Background()

	const writers, beacons = 8, 10
	var (
		wg   sync.WaitGroup
		stop = make(chan struct{})
		seen = make(chan float64, 1)
	)

	// reader: scroll depth observed over time must never go down
	go func() {
		var last float64
		for {
			select {
			case <-stop:
				seen <- last
				return
			default:
			}
			rec, err := GetEngagement(ctx, db, "s1", "p1")
			if err != nil {
				continue
			}
			if rec.ScrollDepthPercent < last {
				t.Errorf("scroll depth went back from %v to %v", last, rec.ScrollDepthPercent)
			}
			last = rec.ScrollDepthPercent
		}
	}()

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < beacons; i++ {
				m := domain.EngagementMetrics{
					ScrollDepthPercent: float64((w*beacons + i) % 100),
					TimeOnPageSeconds:  float64(i),
					Clicks:             1,
					Shares:             1,
				}
				if err := UpsertEngagement(ctx, db, "s1", "p1", nil, m); err != nil {
					t.Errorf("writer %d beacon %d: %v", w, i, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(stop)
	<-seen

	rec, err := GetEngagement(ctx, db, "s1", "p1")
	if err != nil {
		t.Fatalf("GetEngagement: %v", err)
	}
	if rec.Clicks != writers*beacons || rec.Shares != writers*beacons {
		t.Fatalf("counters = %d clicks, %d shares; want %d each", rec.Clicks, rec.Shares, writers*beacons)
	}
	if rec.ScrollDepthPercent != 79 {
		t.Fatalf("scroll depth = %v; want max 79", rec.ScrollDepthPercent)
	}
	var rows int64
	db.Model(&domain.EngagementRecord{}).Count(&rows)
	if rows != 1 {
		t.Fatalf("expected one merged row, got %d", rows)
	}
}

package domain

import (
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:domain_models?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		ViewEvent{}.TableName():        "view_events",
		LikeRecord{}.TableName():       "like_records",
		EngagementRecord{}.TableName(): "engagement_records",
		PostStats{}.TableName():        "post_stats",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_UniqueIndexes(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&ViewEvent{}, &LikeRecord{}, &EngagementRecord{}, &PostStats{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	for _, idx := range []struct {
		model any
		name  string
	}{
		{&ViewEvent{}, "idx_views_post_created"},
		{&ViewEvent{}, "idx_views_post_session"},
		{&LikeRecord{}, "ux_likes_post_user"},
		{&EngagementRecord{}, "ux_engagement_session_post"},
	} {
		if !m.HasIndex(idx.model, idx.name) {
			t.Fatalf("expected index %s on %T", idx.name, idx.model)
		}
	}

	now := time.Now().UTC()
	if err := db.Create(&LikeRecord{ID: "l1", PostID: "p1", UserID: "u1", CreatedAt: now}).Error; err != nil {
		t.Fatalf("insert like: %v", err)
	}
	if err := db.Create(&LikeRecord{ID: "l2", PostID: "p1", UserID: "u1", CreatedAt: now}).Error; err == nil {
		t.Fatalf("expected unique violation for duplicate (post,user) like")
	}

	if err := db.Create(&EngagementRecord{ID: "e1", SessionID: "s1", PostID: "p1"}).Error; err != nil {
		t.Fatalf("insert engagement: %v", err)
	}
	if err := db.Create(&EngagementRecord{ID: "e2", SessionID: "s1", PostID: "p1"}).Error; err == nil {
		t.Fatalf("expected unique violation for duplicate (session,post) engagement")
	}
}

func TestPostStats_SameCounters(t *testing.T) {
	t1 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	t2 := t1.In(time.FixedZone("X", 3600))
	a := PostStats{PostID: "p", TotalViews: 3, UniqueViews: 2, LastViewedAt: &t1, UpdatedAt: t1}
	b := a
	b.LastViewedAt = &t2
	b.UpdatedAt = t1.Add(time.Hour)
	if !a.SameCounters(b) {
		t.Fatalf("UpdatedAt and zone must not affect SameCounters")
	}
	b.TotalLikes = 1
	if a.SameCounters(b) {
		t.Fatalf("different likes must differ")
	}
	c := a
	c.LastViewedAt = nil
	if a.SameCounters(c) || !c.SameCounters(PostStats{PostID: "p", TotalViews: 3, UniqueViews: 2}) {
		t.Fatalf("nil LastViewedAt handling wrong")
	}
}

func TestEngagementMetrics_Valid(t *testing.T) {
	cases := []struct {
		m    EngagementMetrics
		want bool
	}{
		{EngagementMetrics{}, true},
		{EngagementMetrics{ScrollDepthPercent: 100, TimeOnPageSeconds: 12, Clicks: 2}, true},
		{EngagementMetrics{ScrollDepthPercent: 101}, false},
		{EngagementMetrics{ScrollDepthPercent: -1}, false},
		{EngagementMetrics{TimeOnPageSeconds: -0.5}, false},
		{EngagementMetrics{Shares: -1}, false},
		{EngagementMetrics{Comments: -1}, false},
	}
	for i, tc := range cases {
		if got := tc.m.Valid(); got != tc.want {
			t.Fatalf("case %d: Valid() = %v, want %v", i, got, tc.want)
		}
	}
}

func TestAdmissionConstructors(t *testing.T) {
	if a := Admit(); !a.Admitted || a.Reason != ReasonNone {
		t.Fatalf("Admit() = %+v", a)
	}
	if r := Reject(ReasonDuplicateView); r.Admitted || r.Reason != ReasonDuplicateView {
		t.Fatalf("Reject() = %+v", r)
	}
}

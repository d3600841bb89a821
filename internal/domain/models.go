// Package domain defines the persistence models of the engagement pipeline:
// raw view events, like records, per-session engagement rows and the
// denormalized per-post statistics derived from them. These types are mapped
// with GORM and form the core data layer of the service.
package domain

import (
	"time"
)

// ViewEvent is one admitted page view of a post. Rows are append-only and are
// never updated after insert.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - PostID: viewed post; indexed together with CreatedAt for windowed scans.
//   - ViewerID: authenticated viewer, nil for anonymous traffic.
//   - SessionID: anonymous browsing-context token, the unit of deduplication.
//   - SourceAddress / UserAgent / Referrer: request metadata kept for audit.
//   - Country / City: optional edge-derived geo hints.
//   - ViewDurationSeconds: optional client-reported dwell time.
//   - IsBot: classifier verdict; bot rows are excluded from human aggregates.
type ViewEvent struct {
	ID                  string    `json:"id"                              gorm:"type:char(36);primaryKey"`
	PostID              string    `json:"post_id"                         gorm:"type:varchar(64);not null;index:idx_views_post_created,priority:1;index:idx_views_post_session,priority:1"`
	ViewerID            *string   `json:"viewer_id,omitempty"             gorm:"type:varchar(64);index"`
	SessionID           string    `json:"session_id"                      gorm:"type:varchar(128);not null;index:idx_views_post_session,priority:2"`
	SourceAddress       string    `json:"source_address"                  gorm:"type:varchar(64)"`
	UserAgent           string    `json:"user_agent"                      gorm:"type:text"`
	Referrer            string    `json:"referrer,omitempty"              gorm:"type:text"`
	Country             *string   `json:"country,omitempty"               gorm:"type:varchar(8)"`
	City                *string   `json:"city,omitempty"                  gorm:"type:varchar(128)"`
	ViewDurationSeconds *float64  `json:"view_duration_seconds,omitempty"`
	IsBot               bool      `json:"is_bot"                          gorm:"not null;default:false;index"`
	CreatedAt           time.Time `json:"created_at"                      gorm:"index:idx_views_post_created,priority:2"`
}

// TableName returns the database table name for ViewEvent.
func (ViewEvent) TableName() string { return "view_events" }

// LikeRecord marks that a user likes a post. Existence of the row is the
// liked state; one row per (post, user).
type LikeRecord struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	PostID    string    `json:"post_id"    gorm:"type:varchar(64);not null;uniqueIndex:ux_likes_post_user,priority:1"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;uniqueIndex:ux_likes_post_user,priority:2"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for LikeRecord.
func (LikeRecord) TableName() string { return "like_records" }

// EngagementRecord accumulates the in-page behaviour of one session on one
// post. ScrollDepthPercent only moves forward; counters accumulate deltas.
type EngagementRecord struct {
	ID                 string    `json:"id"                   gorm:"type:char(36);primaryKey"`
	SessionID          string    `json:"session_id"           gorm:"type:varchar(128);not null;uniqueIndex:ux_engagement_session_post,priority:1"`
	PostID             string    `json:"post_id"              gorm:"type:varchar(64);not null;uniqueIndex:ux_engagement_session_post,priority:2;index"`
	UserID             *string   `json:"user_id,omitempty"    gorm:"type:varchar(64)"`
	ScrollDepthPercent float64   `json:"scroll_depth_percent" gorm:"not null;default:0;check:scroll_depth_percent >= 0 AND scroll_depth_percent <= 100"`
	TimeOnPageSeconds  float64   `json:"time_on_page_seconds" gorm:"not null;default:0"`
	Clicks             int64     `json:"clicks"               gorm:"not null;default:0"`
	Shares             int64     `json:"shares"               gorm:"not null;default:0"`
	Comments           int64     `json:"comments"             gorm:"not null;default:0"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName returns the database table name for EngagementRecord.
func (EngagementRecord) TableName() string { return "engagement_records" }

// PostStats is the denormalized aggregate for a post. It is always derivable
// from ViewEvent and LikeRecord rows and is replaced as a whole on recompute.
type PostStats struct {
	PostID                 string     `json:"post_id"                   gorm:"type:varchar(64);primaryKey"`
	TotalViews             int64      `json:"total_views"               gorm:"not null;default:0"`
	UniqueViews            int64      `json:"unique_views"              gorm:"not null;default:0"`
	RegisteredViews        int64      `json:"registered_views"          gorm:"not null;default:0"`
	AnonymousViews         int64      `json:"anonymous_views"           gorm:"not null;default:0"`
	BotViews               int64      `json:"bot_views"                 gorm:"not null;default:0"`
	TotalLikes             int64      `json:"total_likes"               gorm:"not null;default:0"`
	AvgViewDurationSeconds float64    `json:"avg_view_duration_seconds" gorm:"not null;default:0"`
	LastViewedAt           *time.Time `json:"last_viewed_at,omitempty"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// TableName returns the database table name for PostStats.
func (PostStats) TableName() string { return "post_stats" }

// SameCounters reports whether two stats snapshots carry identical derived
// values, ignoring UpdatedAt.
func (s PostStats) SameCounters(o PostStats) bool {
	if s.PostID != o.PostID ||
		s.TotalViews != o.TotalViews ||
		s.UniqueViews != o.UniqueViews ||
		s.RegisteredViews != o.RegisteredViews ||
		s.AnonymousViews != o.AnonymousViews ||
		s.BotViews != o.BotViews ||
		s.TotalLikes != o.TotalLikes ||
		s.AvgViewDurationSeconds != o.AvgViewDurationSeconds {
		return false
	}
	switch {
	case s.LastViewedAt == nil && o.LastViewedAt == nil:
		return true
	case s.LastViewedAt == nil || o.LastViewedAt == nil:
		return false
	default:
		return s.LastViewedAt.Equal(*o.LastViewedAt)
	}
}

// TrendingPost is one entry of the trending ranking.
type TrendingPost struct {
	PostID            string `json:"post_id"`
	RecentUniqueViews int64  `json:"recent_unique_views"`
	LikeCount         int64  `json:"like_count"`
}

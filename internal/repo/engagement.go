// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the EngagementRecord upsert.
//
// The merge of a beacon into an existing row runs inside a single
// INSERT ... ON CONFLICT statement so concurrent beacons for the same
// (session_id, post_id) never lose updates:
//
//	scroll_depth_percent = max(old, new)
//	time_on_page_seconds = new
//	clicks/shares/comments = old + new
//	user_id              = coalesce(new, old)
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-engagement-backend/internal/domain"
)

// UpsertEngagement merges m into the (sessionID, postID) row, inserting it
// on first sight. Validation of m is the caller's responsibility.
func UpsertEngagement(ctx context.Context, db *gorm.DB, sessionID, postID string, userID *string, m domain.EngagementMetrics) error {
	now := time.Now().UTC()
	rec := &domain.EngagementRecord{
		ID:                 uuid.NewString(),
		SessionID:          sessionID,
		PostID:             postID,
		UserID:             userID,
		ScrollDepthPercent: m.ScrollDepthPercent,
		TimeOnPageSeconds:  m.TimeOnPageSeconds,
		Clicks:             m.Clicks,
		Shares:             m.Shares,
		Comments:           m.Comments,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	maxFn := "MAX"
	if isPostgres(db) {
		maxFn = "GREATEST"
	}

	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}, {Name: "post_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"scroll_depth_percent": gorm.Expr(maxFn + "(engagement_records.scroll_depth_percent, excluded.scroll_depth_percent)"),
			"time_on_page_seconds": gorm.Expr("excluded.time_on_page_seconds"),
			"clicks":               gorm.Expr("engagement_records.clicks + excluded.clicks"),
			"shares":               gorm.Expr("engagement_records.shares + excluded.shares"),
			"comments":             gorm.Expr("engagement_records.comments + excluded.comments"),
			"user_id":              gorm.Expr("COALESCE(excluded.user_id, engagement_records.user_id)"),
			"updated_at":           gorm.Expr("excluded.updated_at"),
		}),
	}).Create(rec).Error
}

// GetEngagement loads the (sessionID, postID) row, or ErrNotFound.
func GetEngagement(ctx context.Context, db *gorm.DB, sessionID, postID string) (*domain.EngagementRecord, error) {
	var rec domain.EngagementRecord
	if err := db.WithContext(ctx).
		Where("session_id = ? AND post_id = ?", sessionID, postID).
		Take(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

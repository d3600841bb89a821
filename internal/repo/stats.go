// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file derives the per-post aggregate from the raw
// ViewEvent and LikeRecord rows and persists it as a PostStats row.
//
// Human counters exclude bot-flagged events. DeriveStats is a pure function
// of the stored rows; UpsertStats replaces the whole row so the persisted
// aggregate never mixes values from different derivations.
package repo

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-engagement-backend/internal/domain"
)

// DeriveStats scans the source rows for postID and returns a freshly derived
// aggregate. UpdatedAt is left zero; the caller stamps it on persist.
//
// Counters:
//   - TotalViews:      human events
//   - UniqueViews:     distinct session_id among human events
//   - RegisteredViews: human events with a viewer_id
//   - AnonymousViews:  TotalViews - RegisteredViews
//   - BotViews:        bot-flagged events
//   - TotalLikes:      like rows
func DeriveStats(ctx context.Context, db *gorm.DB, postID string) (domain.PostStats, error) {
	st := domain.PostStats{PostID: postID}
	human := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.ViewEvent{}).
			Where("post_id = ? AND is_bot = ?", postID, false)
	}

	if err := human().Count(&st.TotalViews).Error; err != nil {
		return st, err
	}
	if err := db.WithContext(ctx).Model(&domain.ViewEvent{}).
		Where("post_id = ? AND is_bot = ?", postID, true).
		Count(&st.BotViews).Error; err != nil {
		return st, err
	}
	likes, err := CountLikes(ctx, db, postID)
	if err != nil {
		return st, err
	}
	st.TotalLikes = likes
	if st.TotalViews == 0 {
		return st, nil
	}

	if err := human().Distinct("session_id").Count(&st.UniqueViews).Error; err != nil {
		return st, err
	}
	if err := human().Where("viewer_id IS NOT NULL").Count(&st.RegisteredViews).Error; err != nil {
		return st, err
	}
	st.AnonymousViews = st.TotalViews - st.RegisteredViews

	var avg sql.NullFloat64
	if err := human().Where("view_duration_seconds IS NOT NULL").
		Select("AVG(view_duration_seconds)").Row().Scan(&avg); err != nil {
		return st, err
	}
	if avg.Valid {
		st.AvgViewDurationSeconds = avg.Float64
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err := human().Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return st, err
	}
	if !row.CreatedAt.IsZero() {
		last := row.CreatedAt.UTC()
		st.LastViewedAt = &last
	}
	return st, nil
}

// UpsertStats replaces the persisted aggregate for st.PostID with st,
// stamping UpdatedAt.
func UpsertStats(ctx context.Context, db *gorm.DB, st *domain.PostStats) error {
	st.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}},
		UpdateAll: true,
	}).Create(st).Error
}

// GetStats loads the persisted aggregate, or ErrNotFound.
func GetStats(ctx context.Context, db *gorm.DB, postID string) (*domain.PostStats, error) {
	var st domain.PostStats
	if err := db.WithContext(ctx).Where("post_id = ?", postID).Take(&st).Error; err != nil {
		return nil, err
	}
	return &st, nil
}

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for ViewEvent.
//
// View events are an append-only log: there is no update or delete path here.
// Admission (dedup and rate caps) happens before these functions are called.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-engagement-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateViewEvent inserts ev, assigning a UUID and a UTC CreatedAt when unset.
func CreateViewEvent(ctx context.Context, db *gorm.DB, ev *domain.ViewEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(ev).Error
}

// CountViewEvents returns every stored event for the post, bots included.
func CountViewEvents(ctx context.Context, db *gorm.DB, postID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.ViewEvent{}).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}

// ListPostIDs returns the distinct post IDs that have at least one view or
// like, ordered ascending. Used by bulk recompute.
func ListPostIDs(ctx context.Context, db *gorm.DB) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).Raw(
		`SELECT post_id FROM view_events UNION SELECT post_id FROM like_records ORDER BY post_id`,
	).Scan(&ids).Error
	return ids, err
}

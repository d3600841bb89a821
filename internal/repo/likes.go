// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for LikeRecord.
//
// Error semantics:
//   - A duplicate (post_id,user_id) is absorbed by ON CONFLICT DO NOTHING on
//     the unique index and reported as ErrDuplicate. No statement fails, so an
//     enclosing transaction stays usable on Postgres.
//   - FindLike returns ErrNotFound when the user has not liked the post.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-engagement-backend/internal/domain"
)

// ErrDuplicate reports that the user already likes the post.
var ErrDuplicate = errors.New("like already exists")

// FindLike fetches the like of userID on postID, or ErrNotFound.
func FindLike(ctx context.Context, db *gorm.DB, postID, userID string) (*domain.LikeRecord, error) {
	var l domain.LikeRecord
	if err := db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Take(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateLike inserts a like row for (postID, userID). It returns
// ErrDuplicate when the row already exists.
func CreateLike(ctx context.Context, db *gorm.DB, postID, userID string) error {
	l := &domain.LikeRecord{
		ID:        uuid.NewString(),
		PostID:    postID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	res := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(l)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

// DeleteLike removes the like of userID on postID. It returns ErrNotFound
// when no row was deleted.
func DeleteLike(ctx context.Context, db *gorm.DB, postID, userID string) error {
	res := db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&domain.LikeRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountLikes returns the number of like rows for the post.
func CountLikes(ctx context.Context, db *gorm.DB, postID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.LikeRecord{}).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}

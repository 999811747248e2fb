package repository

import (
	"context"
	"errors"

	"newsboard/internal/cache"
	"newsboard/internal/models"

	"gorm.io/gorm"
)

// LikeRepository defines persistence operations for likes.
type LikeRepository interface {
	Find(ctx context.Context, userID, postID uint) (*models.Like, error)
	// Create inserts a like. When the (user, post) pair already exists the
	// stored like is returned with created=false.
	Create(ctx context.Context, like *models.Like) (stored *models.Like, created bool, err error)
	Delete(ctx context.Context, userID, postID uint) (bool, error)
	Count(ctx context.Context, postID uint) (int64, error)
	ListByPost(ctx context.Context, postID uint, limit, offset int) ([]*models.Like, int64, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository returns a new LikeRepository implementation.
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

// Find returns the like of userID on postID, or nil when there is none.
func (r *likeRepository) Find(ctx context.Context, userID, postID uint) (*models.Like, error) {
	var like models.Like
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		First(&like).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &like, nil
}

func (r *likeRepository) Create(ctx context.Context, like *models.Like) (*models.Like, bool, error) {
	err := r.db.WithContext(ctx).Omit("User").Create(like).Error
	if err == nil {
		cache.InvalidatePost(ctx, like.PostID)
		return like, true, nil
	}
	if !IsUniqueViolation(err) {
		return nil, false, models.NewInternalError(err)
	}

	// A concurrent request won the race on the unique index.
	existing, findErr := r.Find(ctx, like.UserID, like.PostID)
	if findErr != nil {
		return nil, false, findErr
	}
	if existing == nil {
		return nil, false, models.NewInternalError(err)
	}
	return existing, false, nil
}

// Delete removes the like and reports whether one existed.
func (r *likeRepository) Delete(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected > 0 {
		cache.InvalidatePost(ctx, postID)
	}
	return res.RowsAffected > 0, nil
}

func (r *likeRepository) Count(ctx context.Context, postID uint) (int64, error) {
	var count int64
	err := cache.Aside(ctx, cache.LikeCountKey(postID), &count, cache.LikeCountTTL, func() error {
		return r.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error
	})
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *likeRepository) ListByPost(ctx context.Context, postID uint, limit, offset int) ([]*models.Like, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	likes := make([]*models.Like, 0, limit)
	if total == 0 {
		return likes, 0, nil
	}
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&likes).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return likes, total, nil
}

package repository

import (
	"context"
	"time"

	"newsboard/internal/cache"
	"newsboard/internal/models"
	"newsboard/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, int64, error)
	ListReplies(ctx context.Context, parentID uint, limit, offset int) ([]*models.Comment, int64, error)
	CountReplies(ctx context.Context, id uint) (int64, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit("User", "Replies").Create(comment).Error; err != nil {
		return translate(err, "Comment", comment.ID)
	}
	cache.InvalidatePost(ctx, comment.PostID)
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.withReplyCount(r.db.WithContext(ctx)).
		Preload("User").
		First(&comment, id).Error
	if err != nil {
		return nil, translate(err, "Comment", id)
	}
	return &comment, nil
}

// ListByPost returns every comment on the post, newest first, each with its
// direct replies attached.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint, limit, offset int) (comments []*models.Comment, total int64, err error) {
	ctx, finish := observability.StartRepositorySpan(ctx, "CommentRepository.ListByPost", "comments")
	defer func() { finish(err) }()

	return r.page(ctx, "comments.post_id = ?", postID, limit, offset)
}

func (r *commentRepository) ListReplies(ctx context.Context, parentID uint, limit, offset int) (comments []*models.Comment, total int64, err error) {
	ctx, finish := observability.StartRepositorySpan(ctx, "CommentRepository.ListReplies", "comments")
	defer func() { finish(err) }()

	return r.page(ctx, "comments.parent_id = ?", parentID, limit, offset)
}

func (r *commentRepository) page(ctx context.Context, cond string, arg uint, limit, offset int) ([]*models.Comment, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).Where(cond, arg).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	comments := make([]*models.Comment, 0, limit)
	if total == 0 {
		return comments, 0, nil
	}

	err := r.withReplyCount(r.db.WithContext(ctx)).
		Where(cond, arg).
		Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at ASC, comments.id ASC")
		}).
		Preload("Replies.User").
		Order("comments.created_at DESC").
		Order("comments.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return comments, total, nil
}

func (r *commentRepository) CountReplies(ctx context.Context, id uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("parent_id = ?", id).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *commentRepository) withReplyCount(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Comment{}).Select("comments.*, " +
		"(SELECT COUNT(*) FROM comments AS replies WHERE replies.parent_id = comments.id) AS reply_count")
}

// Update writes the comment content and refreshes updated_at.
func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	comment.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", comment.ID).
		Updates(map[string]any{
			"content":    comment.Content,
			"updated_at": comment.UpdatedAt,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", comment.ID)
	}
	return nil
}

// Delete removes exactly one comment. It refuses when replies exist, checked
// in the same transaction as the delete.
func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	var postID uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.Select("id", "post_id").First(&comment, id).Error; err != nil {
			return err
		}
		postID = comment.PostID

		var replies int64
		if err := tx.Model(&models.Comment{}).Where("parent_id = ?", id).Count(&replies).Error; err != nil {
			return err
		}
		if replies > 0 {
			return models.NewHasRepliesError(id)
		}

		return tx.Delete(&models.Comment{}, id).Error
	})
	if err != nil {
		return translate(err, "Comment", id)
	}
	cache.InvalidatePost(ctx, postID)
	return nil
}

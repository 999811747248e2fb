package repository

import (
	"context"
	"strings"
	"time"

	"newsboard/internal/cache"
	"newsboard/internal/models"
	"newsboard/internal/observability"

	"gorm.io/gorm"
)

// SortOrder selects the chronological direction of a post listing.
type SortOrder int

const (
	NewestFirst SortOrder = iota
	OldestFirst
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetWithComments(ctx context.Context, id uint) (*models.Post, error)
	Exists(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, limit, offset int, order SortOrder) ([]*models.Post, int64, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, int64, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*models.Post, int64, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(post).Error; err != nil {
		return translate(err, "Post", post.ID)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		return r.withDetails(r.db.WithContext(ctx)).
			Preload("User").
			First(&post, id).Error
	})
	if err != nil {
		return nil, translate(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) GetWithComments(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.withDetails(r.db.WithContext(ctx)).
		Preload("User").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at DESC, comments.id DESC")
		}).
		Preload("Comments.User").
		First(&post, id).Error
	if err != nil {
		return nil, translate(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int, order SortOrder) (posts []*models.Post, total int64, err error) {
	ctx, finish := observability.StartRepositorySpan(ctx, "PostRepository.List", "posts")
	defer func() { finish(err) }()

	return r.page(ctx, nil, limit, offset, order)
}

func (r *postRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) (posts []*models.Post, total int64, err error) {
	ctx, finish := observability.StartRepositorySpan(ctx, "PostRepository.ListByUser", "posts")
	defer func() { finish(err) }()

	return r.page(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.user_id = ?", userID)
	}, limit, offset, NewestFirst)
}

func (r *postRepository) Search(ctx context.Context, query string, limit, offset int) (posts []*models.Post, total int64, err error) {
	ctx, finish := observability.StartRepositorySpan(ctx, "PostRepository.Search", "posts")
	defer func() { finish(err) }()

	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	return r.page(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"LOWER(posts.title) LIKE ? ESCAPE '\\' OR "+
				"LOWER(COALESCE(posts.content, '')) LIKE ? ESCAPE '\\' OR "+
				"LOWER(COALESCE(posts.url, '')) LIKE ? ESCAPE '\\' OR "+
				"EXISTS (SELECT 1 FROM users WHERE users.id = posts.user_id AND LOWER(users.username) LIKE ? ESCAPE '\\') OR "+
				"EXISTS (SELECT 1 FROM comments WHERE comments.post_id = posts.id AND LOWER(comments.content) LIKE ? ESCAPE '\\')",
			pattern, pattern, pattern, pattern, pattern,
		)
	}, limit, offset, NewestFirst)
}

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// page counts and fetches one window of posts matching filter.
func (r *postRepository) page(ctx context.Context, filter func(*gorm.DB) *gorm.DB, limit, offset int, order SortOrder) ([]*models.Post, int64, error) {
	scoped := func(db *gorm.DB) *gorm.DB {
		if filter == nil {
			return db
		}
		return filter(db)
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Scopes(scoped).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	posts := make([]*models.Post, 0, limit)
	if total == 0 {
		return posts, 0, nil
	}

	direction := "DESC"
	if order == OldestFirst {
		direction = "ASC"
	}
	err := r.withDetails(r.db.WithContext(ctx)).
		Scopes(scoped).
		Preload("User").
		Order("posts.created_at " + direction).
		Order("posts.id " + direction).
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

// withDetails adds subqueries to fetch like and comment counts in a single query.
func (r *postRepository) withDetails(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Post{}).Select("posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS likes_count")
}

// Update writes the mutable columns of post and refreshes updated_at.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	post.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", post.ID).
		Updates(map[string]any{
			"title":      post.Title,
			"url":        post.URL,
			"content":    post.Content,
			"updated_at": post.UpdatedAt,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

// Delete removes the post together with its likes and comments.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return translate(err, "Post", id)
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

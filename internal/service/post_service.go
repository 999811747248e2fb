package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"newsboard/internal/models"
	"newsboard/internal/pagination"
	"newsboard/internal/repository"
	"newsboard/internal/validation"
)

const (
	maxTitleLen   = 300
	maxContentLen = 50000
)

type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
}

type CreatePostInput struct {
	UserID  uint
	Title   string
	URL     *string
	Content *string
}

// UpdatePostInput is a partial patch. An unset field is left untouched. A
// URL or Content set to null or blank clears the stored value; Title cannot
// be cleared.
type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Title   models.Optional[string]
	URL     models.Optional[string]
	Content models.Optional[string]
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
	}
}

// ListPosts returns posts newest first.
func (s *PostService) ListPosts(ctx context.Context, p pagination.Params) (pagination.Page[*models.Post], error) {
	posts, total, err := s.postRepo.List(ctx, p.Limit, p.Offset, repository.NewestFirst)
	if err != nil {
		return pagination.Page[*models.Post]{}, err
	}
	return pagination.NewPage(posts, total, p), nil
}

// ListPastPosts returns posts oldest first.
func (s *PostService) ListPastPosts(ctx context.Context, p pagination.Params) (pagination.Page[*models.Post], error) {
	posts, total, err := s.postRepo.List(ctx, p.Limit, p.Offset, repository.OldestFirst)
	if err != nil {
		return pagination.Page[*models.Post]{}, err
	}
	return pagination.NewPage(posts, total, p), nil
}

func (s *PostService) ListMyPosts(ctx context.Context, userID uint, p pagination.Params) (pagination.Page[*models.Post], error) {
	if err := requireUser(userID); err != nil {
		return pagination.Page[*models.Post]{}, err
	}
	posts, total, err := s.postRepo.ListByUser(ctx, userID, p.Limit, p.Offset)
	if err != nil {
		return pagination.Page[*models.Post]{}, err
	}
	return pagination.NewPage(posts, total, p), nil
}

func (s *PostService) ListPostsByUsername(ctx context.Context, username string, p pagination.Params) (pagination.Page[*models.Post], error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return pagination.Page[*models.Post]{}, err
	}
	posts, total, err := s.postRepo.ListByUser(ctx, user.ID, p.Limit, p.Offset)
	if err != nil {
		return pagination.Page[*models.Post]{}, err
	}
	return pagination.NewPage(posts, total, p), nil
}

func (s *PostService) SearchPosts(ctx context.Context, query string, p pagination.Params) (pagination.Page[*models.Post], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return pagination.Page[*models.Post]{}, models.NewFieldError("q", "Search query is required")
	}
	posts, total, err := s.postRepo.Search(ctx, query, p.Limit, p.Offset)
	if err != nil {
		return pagination.Page[*models.Post]{}, err
	}
	return pagination.NewPage(posts, total, p), nil
}

// GetPost returns the post with its author and comments.
func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetWithComments(ctx, id)
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := requireUser(in.UserID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	url, err := normalizeURL(in.URL)
	if err != nil {
		return nil, err
	}
	content, err := normalizeContent(in.Content)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:   title,
		URL:     url,
		Content: content,
		UserID:  in.UserID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	if err := requireUser(in.UserID); err != nil {
		return nil, err
	}

	var title string
	if in.Title.Set {
		if in.Title.IsNull() {
			return nil, models.NewFieldError("title", "Title cannot be null")
		}
		title = strings.TrimSpace(*in.Title.Value)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
	}
	url, err := normalizeURL(in.URL.Value)
	if err != nil {
		return nil, err
	}
	content, err := normalizeContent(in.Content.Value)
	if err != nil {
		return nil, err
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if !CanMutate(in.UserID, post.UserID) {
		return nil, models.NewForbiddenError("You can only edit your own posts")
	}

	if in.Title.Set {
		post.Title = title
	}
	if in.URL.Set {
		post.URL = url
	}
	if in.Content.Set {
		post.Content = content
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	if err := requireUser(in.UserID); err != nil {
		return err
	}
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return err
	}
	if !CanMutate(in.UserID, post.UserID) {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	return s.postRepo.Delete(ctx, in.PostID)
}

func validateTitle(title string) error {
	if title == "" {
		return models.NewFieldError("title", "Title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return models.NewFieldError("title", "Title too long (max 300 characters)")
	}
	return nil
}

// normalizeURL trims the value, maps blank to nil and validates the rest.
func normalizeURL(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*raw)
	if v == "" {
		return nil, nil
	}
	if err := validation.ValidateURL(v); err != nil {
		return nil, models.NewFieldError("url", err.Error())
	}
	return &v, nil
}

func normalizeContent(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*raw)
	if v == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(v) > maxContentLen {
		return nil, models.NewFieldError("content", "Content too long (max 50000 characters)")
	}
	return &v, nil
}

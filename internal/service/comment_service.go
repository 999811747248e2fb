package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"newsboard/internal/models"
	"newsboard/internal/pagination"
	"newsboard/internal/repository"
)

const maxCommentLen = 10000

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
}

type CreateCommentInput struct {
	UserID   uint
	PostID   uint
	ParentID *uint
	Content  string
}

type UpdateCommentInput struct {
	UserID    uint
	CommentID uint
	Content   string
}

type DeleteCommentInput struct {
	UserID    uint
	CommentID uint
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
	}
}

// ListComments returns the comments on a post, newest first. A post without
// comments yields an empty page; only a missing post is NotFound.
func (s *CommentService) ListComments(ctx context.Context, postID uint, p pagination.Params) (pagination.Page[*models.Comment], error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return pagination.Page[*models.Comment]{}, err
	}
	comments, total, err := s.commentRepo.ListByPost(ctx, postID, p.Limit, p.Offset)
	if err != nil {
		return pagination.Page[*models.Comment]{}, err
	}
	return pagination.NewPage(comments, total, p), nil
}

// ListReplies returns the direct replies to a comment, newest first.
func (s *CommentService) ListReplies(ctx context.Context, commentID uint, p pagination.Params) (pagination.Page[*models.Comment], error) {
	if _, err := s.commentRepo.GetByID(ctx, commentID); err != nil {
		return pagination.Page[*models.Comment]{}, err
	}
	replies, total, err := s.commentRepo.ListReplies(ctx, commentID, p.Limit, p.Offset)
	if err != nil {
		return pagination.Page[*models.Comment]{}, err
	}
	return pagination.NewPage(replies, total, p), nil
}

func (s *CommentService) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	return s.commentRepo.GetByID(ctx, id)
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if err := requireUser(in.UserID); err != nil {
		return nil, err
	}
	content, err := validateCommentContent(in.Content)
	if err != nil {
		return nil, err
	}
	if err := s.requirePost(ctx, in.PostID); err != nil {
		return nil, err
	}

	if in.ParentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentID)
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewNotFoundError("Parent comment", *in.ParentID)
		}
		if err != nil {
			return nil, err
		}
		// A parent on another post is indistinguishable from a missing one.
		if parent.PostID != in.PostID {
			return nil, models.NewNotFoundError("Parent comment", *in.ParentID)
		}
	}

	comment := &models.Comment{
		Content:  content,
		UserID:   in.UserID,
		PostID:   in.PostID,
		ParentID: in.ParentID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, comment.ID)
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	if err := requireUser(in.UserID); err != nil {
		return nil, err
	}
	content, err := validateCommentContent(in.Content)
	if err != nil {
		return nil, err
	}

	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if !CanMutate(in.UserID, comment.UserID) {
		return nil, models.NewForbiddenError("You can only edit your own comments")
	}

	comment.Content = content
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, comment.ID)
}

// DeleteComment removes one reply-less comment owned by the acting user and
// returns it.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (*models.Comment, error) {
	if err := requireUser(in.UserID); err != nil {
		return nil, err
	}
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if !CanMutate(in.UserID, comment.UserID) {
		return nil, models.NewForbiddenError("You can only delete your own comments")
	}

	replies, err := s.commentRepo.CountReplies(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if replies > 0 {
		return nil, models.NewHasRepliesError(in.CommentID)
	}

	if err := s.commentRepo.Delete(ctx, in.CommentID); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) requirePost(ctx context.Context, postID uint) error {
	ok, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError("Post", postID)
	}
	return nil
}

func validateCommentContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", models.NewFieldError("content", "Content is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		return "", models.NewFieldError("content", "Content too long (max 10000 characters)")
	}
	return content, nil
}

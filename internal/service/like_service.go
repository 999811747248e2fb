package service

import (
	"context"

	"newsboard/internal/models"
	"newsboard/internal/pagination"
	"newsboard/internal/repository"
)

type LikeService struct {
	likeRepo repository.LikeRepository
	postRepo repository.PostRepository
}

func NewLikeService(likeRepo repository.LikeRepository, postRepo repository.PostRepository) *LikeService {
	return &LikeService{
		likeRepo: likeRepo,
		postRepo: postRepo,
	}
}

func (s *LikeService) ListLikes(ctx context.Context, postID uint, p pagination.Params) (pagination.Page[*models.Like], error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return pagination.Page[*models.Like]{}, err
	}
	likes, total, err := s.likeRepo.ListByPost(ctx, postID, p.Limit, p.Offset)
	if err != nil {
		return pagination.Page[*models.Like]{}, err
	}
	return pagination.NewPage(likes, total, p), nil
}

// Like records that userID likes postID. Liking twice returns the existing
// like with created=false and writes nothing.
func (s *LikeService) Like(ctx context.Context, postID, userID uint) (*models.Like, bool, error) {
	if err := requireUser(userID); err != nil {
		return nil, false, err
	}
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, false, err
	}

	existing, err := s.likeRepo.Find(ctx, userID, postID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	return s.likeRepo.Create(ctx, &models.Like{UserID: userID, PostID: postID})
}

// Unlike removes the like. Unliking a post that is not liked is NotFound.
func (s *LikeService) Unlike(ctx context.Context, postID, userID uint) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := s.requirePost(ctx, postID); err != nil {
		return err
	}
	removed, err := s.likeRepo.Delete(ctx, userID, postID)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewNotFoundError("Like", postID)
	}
	return nil
}

func (s *LikeService) Status(ctx context.Context, postID, userID uint) (*models.LikeStatus, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	total, err := s.likeRepo.Count(ctx, postID)
	if err != nil {
		return nil, err
	}
	like, err := s.likeRepo.Find(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	return &models.LikeStatus{
		TotalLikes:           total,
		IsLikedByCurrentUser: like != nil,
	}, nil
}

func (s *LikeService) Count(ctx context.Context, postID uint) (int64, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return 0, err
	}
	return s.likeRepo.Count(ctx, postID)
}

func (s *LikeService) requirePost(ctx context.Context, postID uint) error {
	ok, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError("Post", postID)
	}
	return nil
}

package service

import (
	"context"

	"newsboard/internal/models"
	"newsboard/internal/pagination"
	"newsboard/internal/repository"
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) GetMe(ctx context.Context, userID uint) (*models.User, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

func (s *UserService) ListUsers(ctx context.Context, p pagination.Params) (pagination.Page[*models.User], error) {
	users, total, err := s.userRepo.List(ctx, p.Limit, p.Offset)
	if err != nil {
		return pagination.Page[*models.User]{}, err
	}
	return pagination.NewPage(users, total, p), nil
}

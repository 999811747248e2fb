package service

import (
	"context"
	"errors"
	"testing"

	"newsboard/internal/models"
	"newsboard/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn          func(context.Context, *models.Post) error
	getByIDFn         func(context.Context, uint) (*models.Post, error)
	getWithCommentsFn func(context.Context, uint) (*models.Post, error)
	existsFn          func(context.Context, uint) (bool, error)
	listFn            func(context.Context, int, int, repository.SortOrder) ([]*models.Post, int64, error)
	listByUserFn      func(context.Context, uint, int, int) ([]*models.Post, int64, error)
	searchFn          func(context.Context, string, int, int) ([]*models.Post, int64, error)
	updateFn          func(context.Context, *models.Post) error
	deleteFn          func(context.Context, uint) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) GetWithComments(ctx context.Context, id uint) (*models.Post, error) {
	return s.getWithCommentsFn(ctx, id)
}
func (s *postRepoStub) Exists(ctx context.Context, id uint) (bool, error) {
	return s.existsFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int, order repository.SortOrder) ([]*models.Post, int64, error) {
	return s.listFn(ctx, limit, offset, order)
}
func (s *postRepoStub) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, int64, error) {
	return s.listByUserFn(ctx, userID, limit, offset)
}
func (s *postRepoStub) Search(ctx context.Context, query string, limit, offset int) ([]*models.Post, int64, error) {
	return s.searchFn(ctx, query, limit, offset)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id}, nil
		},
		getWithCommentsFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id}, nil
		},
		existsFn: func(_ context.Context, _ uint) (bool, error) { return true, nil },
		listFn: func(_ context.Context, _, _ int, _ repository.SortOrder) ([]*models.Post, int64, error) {
			return nil, 0, nil
		},
		listByUserFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Post, int64, error) {
			return nil, 0, nil
		},
		searchFn: func(_ context.Context, _ string, _, _ int) ([]*models.Post, int64, error) {
			return nil, 0, nil
		},
		updateFn: func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn: func(_ context.Context, _ uint) error { return nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn       func(context.Context, *models.Comment) error
	getByIDFn      func(context.Context, uint) (*models.Comment, error)
	listByPostFn   func(context.Context, uint, int, int) ([]*models.Comment, int64, error)
	listRepliesFn  func(context.Context, uint, int, int) ([]*models.Comment, int64, error)
	countRepliesFn func(context.Context, uint) (int64, error)
	updateFn       func(context.Context, *models.Comment) error
	deleteFn       func(context.Context, uint) error
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, int64, error) {
	return s.listByPostFn(ctx, postID, limit, offset)
}
func (s *commentRepoStub) ListReplies(ctx context.Context, parentID uint, limit, offset int) ([]*models.Comment, int64, error) {
	return s.listRepliesFn(ctx, parentID, limit, offset)
}
func (s *commentRepoStub) CountReplies(ctx context.Context, id uint) (int64, error) {
	return s.countRepliesFn(ctx, id)
}
func (s *commentRepoStub) Update(ctx context.Context, comment *models.Comment) error {
	return s.updateFn(ctx, comment)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id}, nil
		},
		listByPostFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Comment, int64, error) {
			return nil, 0, nil
		},
		listRepliesFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Comment, int64, error) {
			return nil, 0, nil
		},
		countRepliesFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		updateFn:       func(_ context.Context, _ *models.Comment) error { return nil },
		deleteFn:       func(_ context.Context, _ uint) error { return nil },
	}
}

// likeRepoStub is a stub for repository.LikeRepository.
type likeRepoStub struct {
	findFn       func(context.Context, uint, uint) (*models.Like, error)
	createFn     func(context.Context, *models.Like) (*models.Like, bool, error)
	deleteFn     func(context.Context, uint, uint) (bool, error)
	countFn      func(context.Context, uint) (int64, error)
	listByPostFn func(context.Context, uint, int, int) ([]*models.Like, int64, error)
}

func (s *likeRepoStub) Find(ctx context.Context, userID, postID uint) (*models.Like, error) {
	return s.findFn(ctx, userID, postID)
}
func (s *likeRepoStub) Create(ctx context.Context, like *models.Like) (*models.Like, bool, error) {
	return s.createFn(ctx, like)
}
func (s *likeRepoStub) Delete(ctx context.Context, userID, postID uint) (bool, error) {
	return s.deleteFn(ctx, userID, postID)
}
func (s *likeRepoStub) Count(ctx context.Context, postID uint) (int64, error) {
	return s.countFn(ctx, postID)
}
func (s *likeRepoStub) ListByPost(ctx context.Context, postID uint, limit, offset int) ([]*models.Like, int64, error) {
	return s.listByPostFn(ctx, postID, limit, offset)
}

func noopLikeRepo() *likeRepoStub {
	return &likeRepoStub{
		findFn: func(_ context.Context, _, _ uint) (*models.Like, error) { return nil, nil },
		createFn: func(_ context.Context, l *models.Like) (*models.Like, bool, error) {
			return l, true, nil
		},
		deleteFn: func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		countFn:  func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		listByPostFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Like, int64, error) {
			return nil, 0, nil
		},
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
	listFn          func(context.Context, int, int) ([]*models.User, int64, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]*models.User, int64, error) {
	return s.listFn(ctx, limit, offset)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
		getByUsernameFn: func(_ context.Context, username string) (*models.User, error) {
			return nil, models.NewNotFoundError("User", username)
		},
		createFn: func(_ context.Context, _ *models.User) error { return nil },
		listFn: func(_ context.Context, _, _ int) ([]*models.User, int64, error) {
			return nil, 0, nil
		},
	}
}

func assertKind(t *testing.T, err error, kind models.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected *models.AppError, got %T: %v", err, err)
	assert.Equal(t, kind, appErr.Kind, appErr.Message)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertKind(t, err, models.KindValidation)
}

func assertForbiddenError(t *testing.T, err error) {
	t.Helper()
	assertKind(t, err, models.KindForbidden)
}

func assertNotFoundError(t *testing.T, err error) {
	t.Helper()
	assertKind(t, err, models.KindNotFound)
}

func ptr[T any](v T) *T { return &v }

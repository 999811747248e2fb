package service

import (
	"context"
	"errors"
	"strings"

	"newsboard/internal/auth"
	"newsboard/internal/models"
	"newsboard/internal/observability"
	"newsboard/internal/repository"
	"newsboard/internal/validation"
)

// TokenIssuer issues access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID uint, username string) (string, error)
}

type AuthService struct {
	userRepo repository.UserRepository
	hasher   auth.PasswordHasher
	tokens   TokenIssuer
}

type Credentials struct {
	Username string
	Password string
}

// AuthResult is returned by a successful sign-up or log-in.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func NewAuthService(userRepo repository.UserRepository, hasher auth.PasswordHasher, tokens TokenIssuer) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
	}
}

func (s *AuthService) SignUp(ctx context.Context, in Credentials) (*AuthResult, error) {
	result, err := s.signUp(ctx, in)
	recordAuthAttempt("sign_up", err)
	return result, err
}

func (s *AuthService) signUp(ctx context.Context, in Credentials) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewFieldError("username", err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewFieldError("password", err.Error())
	}

	_, err := s.userRepo.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, models.NewConflictError("username", "Username is already taken")
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{Username: username, Password: hash}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issue(user)
}

func (s *AuthService) LogIn(ctx context.Context, in Credentials) (*AuthResult, error) {
	result, err := s.logIn(ctx, in)
	recordAuthAttempt("log_in", err)
	return result, err
}

func (s *AuthService) logIn(ctx context.Context, in Credentials) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, models.NewFieldError("username", "Username is required")
	}
	if in.Password == "" {
		return nil, models.NewFieldError("password", "Password is required")
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NewInvalidCredentialsError()
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.hasher.Compare(user.Password, in.Password)
	if err != nil || !ok {
		return nil, models.NewInvalidCredentialsError()
	}

	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

func recordAuthAttempt(action string, err error) {
	outcome := "success"
	if err != nil {
		outcome = strings.ToLower(string(models.KindOf(err)))
	}
	observability.AuthAttempts.WithLabelValues(action, outcome).Inc()
}

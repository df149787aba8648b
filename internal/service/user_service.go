package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raglegal/api/internal/auth"
	"github.com/raglegal/api/internal/config"
	"github.com/raglegal/api/internal/model"
	"github.com/raglegal/api/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrAdminImmutable     = errors.New("admin accounts cannot be modified")
	ErrUsernameTaken      = errors.New("username or email already registered")
)

// UserRepository is the persistence contract for accounts.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
	ListNonAdmin(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id int64) error
}

// UserService handles authentication and account administration.
type UserService struct {
	users     UserRepository
	jwtSecret string
	jwtExpiry time.Duration
}

func NewUserService(users UserRepository, cfg *config.JWTConfig) *UserService {
	return &UserService{
		users:     users,
		jwtSecret: cfg.Secret,
		jwtExpiry: time.Duration(cfg.Expiration) * time.Minute,
	}
}

// Login verifies credentials and issues an access token.
func (s *UserService) Login(ctx context.Context, username, password string) (*model.TokenResponse, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login lookup failed: %w", err)
	}

	if !user.IsActive || !auth.VerifyPassword(password, user.HashedPassword) {
		return nil, ErrInvalidCredentials
	}

	token, err := auth.IssueToken(s.jwtSecret, user.Username, user.Role, s.jwtExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &model.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	}, nil
}

// Register creates a reviewer/uploader account.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: hashed,
		Role:           req.Role,
		IsActive:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return user, nil
}

// List returns all non-admin accounts.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.users.ListNonAdmin(ctx)
}

// Update patches role/active state of a non-admin account.
func (s *UserService) Update(ctx context.Context, id int64, req *model.UserUpdateRequest) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.Role == model.RoleAdmin {
		return nil, ErrAdminImmutable
	}

	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a non-admin account.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.Role == model.RoleAdmin {
		return ErrAdminImmutable
	}
	return s.users.Delete(ctx, id)
}

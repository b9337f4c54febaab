// Package server provides the HTTP REST API for the campaign studio.
package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/campaign-studio/internal/config"
	"github.com/jonathan/campaign-studio/internal/store"
	"github.com/jonathan/campaign-studio/internal/types"
)

// UserService provides business logic for account operations.
type UserService struct {
	store          store.UserStore
	passwordConfig *config.PasswordConfig
}

// NewUserService creates a new UserService with the given dependencies.
func NewUserService(st store.UserStore, passwordConfig *config.PasswordConfig) *UserService {
	return &UserService{store: st, passwordConfig: passwordConfig}
}

// Register creates a new account. New accounts start on the basic tier.
func (s *UserService) Register(ctx context.Context, req *types.CreateUserRequest) (*types.User, error) {
	passwordHash, err := s.passwordConfig.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, req.Name, req.Email, passwordHash, req.Company, types.TierBasic)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, &ErrEmailAlreadyExists{Email: req.Email}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login authenticates by email and password. Unknown emails and wrong
// passwords return the same error so the response never reveals which.
func (s *UserService) Login(ctx context.Context, req *types.LoginRequest) (*types.User, error) {
	user, passwordHash, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &ErrInvalidCredentials{}
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	if !s.passwordConfig.VerifyPassword(req.Password, passwordHash) {
		return nil, &ErrInvalidCredentials{}
	}
	return user, nil
}

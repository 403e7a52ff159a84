package services

import (
	"context"

	"github.com/identity-service/identity-service/internal/auth"
	"github.com/identity-service/identity-service/internal/authz"
	"github.com/identity-service/identity-service/internal/db/models"
)

// UserService handles user profile reads.
type UserService struct {
	users UserStore
	authz *authz.Engine
}

// NewUserService creates a new UserService
func NewUserService(users UserStore, engine *authz.Engine) *UserService {
	return &UserService{users: users, authz: engine}
}

// Get returns the user userID if the caller may view it: the caller themselves, or
// a user sharing at least one organisation with the caller.
func (s *UserService) Get(ctx context.Context, id auth.Identity, userID string) (*models.User, error) {
	if id.UserID == "" {
		return nil, authz.ErrUnauthenticated
	}
	if !validID(userID) {
		return nil, ErrNotFound
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	if err := s.authz.CanViewUser(ctx, id, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

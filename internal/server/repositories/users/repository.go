package users

import (
	"context"

	"github.com/dmitrijs2005/geocapsule/internal/server/models"
)

// Repository describes persistence operations for user accounts.
type Repository interface {
	// Create inserts a new user; returns common.ErrLoginAlreadyExists when
	// the login is taken.
	Create(ctx context.Context, u *models.User) error

	// GetByLogin returns a user by login, or common.ErrNotFound.
	GetByLogin(ctx context.Context, login string) (*models.User, error)
}

// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/forever-vivid/internal/model"
)

// UserRepository provides access to identity-service accounts.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by UID.
	GetByID(ctx context.Context, id string) (*model.User, error)
	// TouchSignIn records a sign-in, creating a non-anonymous user on first sight.
	TouchSignIn(ctx context.Context, id string) (*model.User, error)
}

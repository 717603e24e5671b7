package auth

import (
	"context"
)

// UserRepository defines user storage operations.
type UserRepository interface {
	// Create creates a new user and fills its generated ID.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, userID int64) (*User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// ExistsByUsername checks username uniqueness.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// UpdateLoginState persists login counters and timestamps.
	UpdateLoginState(ctx context.Context, user *User) error

	// UpdatePassword replaces the password hash.
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error

	// SetActive enables or disables an account.
	SetActive(ctx context.Context, userID int64, active bool) error

	// List retrieves all users ordered by username.
	List(ctx context.Context) ([]*User, error)
}

package driving

import (
	"context"

	"github.com/custodia-labs/ragify/internal/core/domain"
)

// UserService manages the accounts that own durable scopes.
type UserService interface {
	// Register creates a user with a hashed password.
	Register(ctx context.Context, username, password string) (*domain.User, error)

	// Authenticate returns the user if the password matches.
	// Returns domain.ErrInvalidCredentials otherwise, without saying which part was wrong.
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)

	// Lookup returns a user by name without checking a password.
	Lookup(ctx context.Context, username string) (*domain.User, error)
}

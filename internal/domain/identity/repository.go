package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("user not found")

// Resolver maps an email address to a stable identity.
type Resolver interface {
	GetOrCreate(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateProfile(ctx context.Context, user *User) error
}

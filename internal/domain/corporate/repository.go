package corporate

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("corporate not found")

// Repository stores corporate clients that sponsor sessions.
type Repository interface {
	Save(ctx context.Context, c *Corporate) error
	Update(ctx context.Context, c *Corporate) error
	FindByID(ctx context.Context, id uuid.UUID) (*Corporate, error)
	List(ctx context.Context, activeOnly bool) ([]*Corporate, error)
}

package provider

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("provider not found")

// Repository stores the counselors sessions are assigned to.
type Repository interface {
	Save(ctx context.Context, p *Provider) error
	Update(ctx context.Context, p *Provider) error
	FindByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	List(ctx context.Context, activeOnly bool) ([]*Provider, error)
}

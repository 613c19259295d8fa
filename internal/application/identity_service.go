package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
	"github.com/mindsettler/service-booking/internal/domain/identity"
)

// UserDTO is the API representation of a requester identity.
type UserDTO struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IdentityService resolves requester emails to identities.
type IdentityService struct {
	users  identity.Resolver
	logger *zap.Logger
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(users identity.Resolver, logger *zap.Logger) *IdentityService {
	return &IdentityService{users: users, logger: logger}
}

// Resolve returns the identity for email, creating it on first contact, and copies any
// new profile fields onto it.
func (s *IdentityService) Resolve(ctx context.Context, email, fullName, phone string) (*identity.User, error) {
	normalized, err := identity.NormalizeEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bookingDomain.ErrValidation, err)
	}

	user, err := s.users.GetOrCreate(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve identity: %w", err)
	}

	if user.ApplyProfile(fullName, phone, time.Now()) {
		if err := s.users.UpdateProfile(ctx, user); err != nil {
			s.logger.Error("failed to update user profile",
				zap.String("user_id", user.ID().String()),
				zap.Error(err),
			)
			return nil, fmt.Errorf("failed to update user profile: %w", err)
		}
	}
	return user, nil
}

// GetUser returns an identity by ID.
func (s *IdentityService) GetUser(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toUserDTO(user)
	return &result, nil
}

func toUserDTO(u *identity.User) UserDTO {
	return UserDTO{
		ID:        u.ID(),
		Email:     u.Email(),
		FullName:  u.FullName(),
		Phone:     u.Phone(),
		CreatedAt: u.CreatedAt(),
	}
}

package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
	"github.com/mindsettler/service-booking/internal/domain/corporate"
	"github.com/mindsettler/service-booking/internal/domain/provider"
)

// CreateProviderRequest is the admin form for onboarding a counselor.
type CreateProviderRequest struct {
	FullName        string `json:"full_name" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Specialization  string `json:"specialization" binding:"required"`
	ExperienceYears int    `json:"experience_years"`
	Bio             string `json:"bio"`
}

// CreateCorporateRequest is the admin form for onboarding a corporate client.
type CreateCorporateRequest struct {
	Name          string `json:"name" binding:"required"`
	ContactPerson string `json:"contact_person"`
	ContactEmail  string `json:"contact_email" binding:"required"`
	ContactPhone  string `json:"contact_phone"`
}

// SetActiveRequest toggles a directory entry.
type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ProviderDTO is the API representation of a counselor.
type ProviderDTO struct {
	ID              uuid.UUID `json:"id"`
	FullName        string    `json:"full_name"`
	Email           string    `json:"email"`
	Specialization  string    `json:"specialization"`
	ExperienceYears int       `json:"experience_years"`
	Bio             string    `json:"bio,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// CorporateDTO is the API representation of a corporate client.
type CorporateDTO struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person,omitempty"`
	ContactEmail  string    `json:"contact_email"`
	ContactPhone  string    `json:"contact_phone,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// DirectoryService manages the providers and corporate clients a booking can be
// assigned to, and vets those assignments on approval.
type DirectoryService struct {
	providers  provider.Repository
	corporates corporate.Repository
	now        func() time.Time
	logger     *zap.Logger
}

// NewDirectoryService creates a new DirectoryService.
func NewDirectoryService(providers provider.Repository, corporates corporate.Repository, now func() time.Time, logger *zap.Logger) *DirectoryService {
	if now == nil {
		now = time.Now
	}
	return &DirectoryService{providers: providers, corporates: corporates, now: now, logger: logger}
}

// CheckAssignment verifies that the referenced provider and corporate exist and are
// active. Nil references are not checked.
func (s *DirectoryService) CheckAssignment(ctx context.Context, providerID, corporateID *uuid.UUID) error {
	if providerID != nil {
		p, err := s.providers.FindByID(ctx, *providerID)
		switch {
		case errors.Is(err, provider.ErrNotFound):
			return fmt.Errorf("%w: provider %s does not exist", bookingDomain.ErrValidation, *providerID)
		case err != nil:
			return fmt.Errorf("failed to look up provider: %w", err)
		case !p.IsActive():
			return fmt.Errorf("%w: provider %s is inactive", bookingDomain.ErrValidation, *providerID)
		}
	}
	if corporateID != nil {
		c, err := s.corporates.FindByID(ctx, *corporateID)
		switch {
		case errors.Is(err, corporate.ErrNotFound):
			return fmt.Errorf("%w: corporate %s does not exist", bookingDomain.ErrValidation, *corporateID)
		case err != nil:
			return fmt.Errorf("failed to look up corporate: %w", err)
		case !c.IsActive():
			return fmt.Errorf("%w: corporate %s is inactive", bookingDomain.ErrValidation, *corporateID)
		}
	}
	return nil
}

func (s *DirectoryService) CreateProvider(ctx context.Context, req CreateProviderRequest) (*ProviderDTO, error) {
	spec, err := provider.ParseSpecialization(req.Specialization)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bookingDomain.ErrValidation, err)
	}
	p, err := provider.NewProvider(req.FullName, req.Email, spec, req.ExperienceYears, req.Bio, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bookingDomain.ErrValidation, err)
	}
	if err := s.providers.Save(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("provider created", zap.String("provider_id", p.ID().String()))
	dto := toProviderDTO(p)
	return &dto, nil
}

func (s *DirectoryService) ListProviders(ctx context.Context, activeOnly bool) ([]ProviderDTO, error) {
	providers, err := s.providers.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	dtos := make([]ProviderDTO, len(providers))
	for i, p := range providers {
		dtos[i] = toProviderDTO(p)
	}
	return dtos, nil
}

// SetProviderActive activates or deactivates a provider. Sessions already assigned keep
// their provider.
func (s *DirectoryService) SetProviderActive(ctx context.Context, id uuid.UUID, active bool) (*ProviderDTO, error) {
	p, err := s.providers.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, provider.ErrNotFound, "provider not found")
	}
	if p.SetActive(active, s.now()) {
		if err := s.providers.Update(ctx, p); err != nil {
			return nil, notFoundAs(err, provider.ErrNotFound, "provider not found")
		}
		s.logger.Info("provider activation changed",
			zap.String("provider_id", id.String()),
			zap.Bool("is_active", active),
		)
	}
	dto := toProviderDTO(p)
	return &dto, nil
}

func (s *DirectoryService) CreateCorporate(ctx context.Context, req CreateCorporateRequest) (*CorporateDTO, error) {
	c, err := corporate.NewCorporate(req.Name, req.ContactPerson, req.ContactEmail, req.ContactPhone, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bookingDomain.ErrValidation, err)
	}
	if err := s.corporates.Save(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("corporate created", zap.String("corporate_id", c.ID().String()))
	dto := toCorporateDTO(c)
	return &dto, nil
}

func (s *DirectoryService) ListCorporates(ctx context.Context, activeOnly bool) ([]CorporateDTO, error) {
	corporates, err := s.corporates.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list corporates: %w", err)
	}
	dtos := make([]CorporateDTO, len(corporates))
	for i, c := range corporates {
		dtos[i] = toCorporateDTO(c)
	}
	return dtos, nil
}

func (s *DirectoryService) SetCorporateActive(ctx context.Context, id uuid.UUID, active bool) (*CorporateDTO, error) {
	c, err := s.corporates.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, corporate.ErrNotFound, "corporate not found")
	}
	if c.SetActive(active, s.now()) {
		if err := s.corporates.Update(ctx, c); err != nil {
			return nil, notFoundAs(err, corporate.ErrNotFound, "corporate not found")
		}
		s.logger.Info("corporate activation changed",
			zap.String("corporate_id", id.String()),
			zap.Bool("is_active", active),
		)
	}
	dto := toCorporateDTO(c)
	return &dto, nil
}

// notFoundAs maps a directory not-found error onto the booking taxonomy the API speaks.
func notFoundAs(err, target error, msg string) error {
	if errors.Is(err, target) {
		return fmt.Errorf("%w: %s", bookingDomain.ErrNotFound, msg)
	}
	return err
}

func toProviderDTO(p *provider.Provider) ProviderDTO {
	return ProviderDTO{
		ID:              p.ID(),
		FullName:        p.FullName(),
		Email:           p.Email(),
		Specialization:  string(p.Specialization()),
		ExperienceYears: p.ExperienceYears(),
		Bio:             p.Bio(),
		IsActive:        p.IsActive(),
		CreatedAt:       p.CreatedAt(),
	}
}

func toCorporateDTO(c *corporate.Corporate) CorporateDTO {
	return CorporateDTO{
		ID:            c.ID(),
		Name:          c.Name(),
		ContactPerson: c.ContactPerson(),
		ContactEmail:  c.ContactEmail(),
		ContactPhone:  c.ContactPhone(),
		IsActive:      c.IsActive(),
		CreatedAt:     c.CreatedAt(),
	}
}

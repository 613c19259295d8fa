package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	providerDomain "github.com/mindsettler/service-booking/internal/domain/provider"
)

// ProviderModel is the GORM model for the providers table.
type ProviderModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	FullName        string    `gorm:"type:varchar(120);not null"`
	Email           string    `gorm:"type:varchar(254);not null;uniqueIndex"`
	Specialization  string    `gorm:"type:varchar(50);not null"`
	ExperienceYears int       `gorm:"not null"`
	Bio             string    `gorm:"type:text"`
	IsActive        bool      `gorm:"not null;default:true;index"`
	CreatedAt       time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt       time.Time `gorm:"type:timestamptz;not null"`
}

func (ProviderModel) TableName() string { return "providers" }

// GormProviderRepository implements provider.Repository using GORM.
type GormProviderRepository struct {
	db *gorm.DB
}

func NewGormProviderRepository(db *gorm.DB) *GormProviderRepository {
	return &GormProviderRepository{db: db}
}

func (r *GormProviderRepository) Save(ctx context.Context, p *providerDomain.Provider) error {
	if err := r.db.WithContext(ctx).Create(toProviderModel(p)).Error; err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}
	return nil
}

func (r *GormProviderRepository) Update(ctx context.Context, p *providerDomain.Provider) error {
	result := r.db.WithContext(ctx).
		Model(&ProviderModel{}).
		Where("id = ?", p.ID()).
		Updates(map[string]interface{}{
			"is_active":  p.IsActive(),
			"updated_at": p.UpdatedAt(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return providerDomain.ErrNotFound
	}
	return nil
}

func (r *GormProviderRepository) FindByID(ctx context.Context, id uuid.UUID) (*providerDomain.Provider, error) {
	var model ProviderModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, providerDomain.ErrNotFound
		}
		return nil, err
	}
	return toProviderDomain(&model), nil
}

func (r *GormProviderRepository) List(ctx context.Context, activeOnly bool) ([]*providerDomain.Provider, error) {
	query := r.db.WithContext(ctx).Model(&ProviderModel{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var models []ProviderModel
	if err := query.Order("full_name ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	providers := make([]*providerDomain.Provider, len(models))
	for i := range models {
		providers[i] = toProviderDomain(&models[i])
	}
	return providers, nil
}

// --- Conversions ---

func toProviderModel(p *providerDomain.Provider) *ProviderModel {
	return &ProviderModel{
		ID:              p.ID(),
		FullName:        p.FullName(),
		Email:           p.Email(),
		Specialization:  string(p.Specialization()),
		ExperienceYears: p.ExperienceYears(),
		Bio:             p.Bio(),
		IsActive:        p.IsActive(),
		CreatedAt:       p.CreatedAt(),
		UpdatedAt:       p.UpdatedAt(),
	}
}

func toProviderDomain(m *ProviderModel) *providerDomain.Provider {
	return providerDomain.Reconstruct(
		m.ID,
		m.FullName,
		m.Email,
		providerDomain.Specialization(m.Specialization),
		m.ExperienceYears,
		m.Bio,
		m.IsActive,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

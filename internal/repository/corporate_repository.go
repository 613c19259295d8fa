package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	corporateDomain "github.com/mindsettler/service-booking/internal/domain/corporate"
)

// CorporateModel is the GORM model for the corporates table.
type CorporateModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"type:varchar(150);not null"`
	ContactPerson string    `gorm:"type:varchar(100)"`
	ContactEmail  string    `gorm:"type:varchar(254);not null"`
	ContactPhone  string    `gorm:"type:varchar(15)"`
	IsActive      bool      `gorm:"not null;default:true;index"`
	CreatedAt     time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt     time.Time `gorm:"type:timestamptz;not null"`
}

func (CorporateModel) TableName() string { return "corporates" }

// GormCorporateRepository implements corporate.Repository using GORM.
type GormCorporateRepository struct {
	db *gorm.DB
}

func NewGormCorporateRepository(db *gorm.DB) *GormCorporateRepository {
	return &GormCorporateRepository{db: db}
}

func (r *GormCorporateRepository) Save(ctx context.Context, c *corporateDomain.Corporate) error {
	if err := r.db.WithContext(ctx).Create(toCorporateModel(c)).Error; err != nil {
		return fmt.Errorf("failed to create corporate: %w", err)
	}
	return nil
}

func (r *GormCorporateRepository) Update(ctx context.Context, c *corporateDomain.Corporate) error {
	result := r.db.WithContext(ctx).
		Model(&CorporateModel{}).
		Where("id = ?", c.ID()).
		Updates(map[string]interface{}{
			"is_active":  c.IsActive(),
			"updated_at": c.UpdatedAt(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return corporateDomain.ErrNotFound
	}
	return nil
}

func (r *GormCorporateRepository) FindByID(ctx context.Context, id uuid.UUID) (*corporateDomain.Corporate, error) {
	var model CorporateModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, corporateDomain.ErrNotFound
		}
		return nil, err
	}
	return toCorporateDomain(&model), nil
}

func (r *GormCorporateRepository) List(ctx context.Context, activeOnly bool) ([]*corporateDomain.Corporate, error) {
	query := r.db.WithContext(ctx).Model(&CorporateModel{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var models []CorporateModel
	if err := query.Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	corporates := make([]*corporateDomain.Corporate, len(models))
	for i := range models {
		corporates[i] = toCorporateDomain(&models[i])
	}
	return corporates, nil
}

// --- Conversions ---

func toCorporateModel(c *corporateDomain.Corporate) *CorporateModel {
	return &CorporateModel{
		ID:            c.ID(),
		Name:          c.Name(),
		ContactPerson: c.ContactPerson(),
		ContactEmail:  c.ContactEmail(),
		ContactPhone:  c.ContactPhone(),
		IsActive:      c.IsActive(),
		CreatedAt:     c.CreatedAt(),
		UpdatedAt:     c.UpdatedAt(),
	}
}

func toCorporateDomain(m *CorporateModel) *corporateDomain.Corporate {
	return corporateDomain.Reconstruct(
		m.ID, m.Name, m.ContactPerson, m.ContactEmail, m.ContactPhone, m.IsActive, m.CreatedAt, m.UpdatedAt,
	)
}

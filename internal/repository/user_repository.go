package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	identityDomain "github.com/mindsettler/service-booking/internal/domain/identity"
)

// UserModel is the GORM model for the app_users table.
type UserModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email     string    `gorm:"type:varchar(254);not null;uniqueIndex"`
	FullName  string    `gorm:"type:varchar(200)"`
	Phone     string    `gorm:"type:varchar(20)"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null"`
}

func (UserModel) TableName() string { return "app_users" }

// GormUserRepository implements identity.Resolver using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// GetOrCreate returns the user for email, inserting it on first sight. Concurrent
// first requests for the same address converge on one row.
func (r *GormUserRepository) GetOrCreate(ctx context.Context, email string) (*identityDomain.User, error) {
	user, err := identityDomain.NewUser(email)
	if err != nil {
		return nil, err
	}

	model := toUserModel(user)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(model).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	var stored UserModel
	if err := r.db.WithContext(ctx).Where("email = ?", user.Email()).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return toUserDomain(&stored), nil
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identityDomain.User, error) {
	var model UserModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, identityDomain.ErrNotFound
		}
		return nil, err
	}
	return toUserDomain(&model), nil
}

func (r *GormUserRepository) UpdateProfile(ctx context.Context, user *identityDomain.User) error {
	return r.db.WithContext(ctx).
		Model(&UserModel{}).
		Where("id = ?", user.ID()).
		Updates(map[string]interface{}{
			"full_name":  user.FullName(),
			"phone":      user.Phone(),
			"updated_at": user.UpdatedAt(),
		}).Error
}

// --- Conversions ---

func toUserModel(u *identityDomain.User) *UserModel {
	return &UserModel{
		ID:        u.ID(),
		Email:     u.Email(),
		FullName:  u.FullName(),
		Phone:     u.Phone(),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
	}
}

func toUserDomain(m *UserModel) *identityDomain.User {
	return identityDomain.Reconstruct(m.ID, m.Email, m.FullName, m.Phone, m.CreatedAt, m.UpdatedAt)
}

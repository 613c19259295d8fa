package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	notificationDomain "github.com/mindsettler/service-booking/internal/domain/notification"
)

// NotificationRecordModel is the GORM model for the notification_records table.
type NotificationRecordModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	BookingID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Template    string    `gorm:"type:varchar(40);not null"`
	Recipient   string    `gorm:"type:varchar(254);not null"`
	Delivered   bool      `gorm:"not null"`
	ErrorText   string    `gorm:"type:text"`
	AttemptedAt time.Time `gorm:"type:timestamptz;not null"`
}

// TableName sets the table name.
func (NotificationRecordModel) TableName() string { return "notification_records" }

// GormNotificationRecordRepository implements notification.RecordRepository using GORM.
type GormNotificationRecordRepository struct {
	db *gorm.DB
}

// NewGormNotificationRecordRepository creates a new GormNotificationRecordRepository.
func NewGormNotificationRecordRepository(db *gorm.DB) *GormNotificationRecordRepository {
	return &GormNotificationRecordRepository{db: db}
}

// Save persists a delivery record.
func (r *GormNotificationRecordRepository) Save(ctx context.Context, record *notificationDomain.Record) error {
	model := toNotificationRecordModel(record)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindByBookingID returns a booking's delivery records, oldest first.
func (r *GormNotificationRecordRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*notificationDomain.Record, error) {
	var models []NotificationRecordModel
	if err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).Order("attempted_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	records := make([]*notificationDomain.Record, len(models))
	for i := range models {
		records[i] = toNotificationRecordDomain(&models[i])
	}
	return records, nil
}

func toNotificationRecordModel(r *notificationDomain.Record) NotificationRecordModel {
	return NotificationRecordModel{
		ID:          r.ID(),
		BookingID:   r.BookingID(),
		Template:    string(r.Template()),
		Recipient:   r.Recipient(),
		Delivered:   r.Delivered(),
		ErrorText:   r.ErrorText(),
		AttemptedAt: r.AttemptedAt(),
	}
}

func toNotificationRecordDomain(m *NotificationRecordModel) *notificationDomain.Record {
	return notificationDomain.Reconstruct(
		m.ID,
		m.BookingID,
		notificationDomain.Template(m.Template),
		m.Recipient,
		m.Delivered,
		m.ErrorText,
		m.AttemptedAt,
	)
}

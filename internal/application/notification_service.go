package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	notificationDomain "github.com/mindsettler/service-booking/internal/domain/notification"
)

// NotificationRecordDTO is the API representation of one email attempt.
type NotificationRecordDTO struct {
	ID          uuid.UUID `json:"id"`
	BookingID   uuid.UUID `json:"booking_id"`
	Template    string    `json:"template"`
	Recipient   string    `json:"recipient"`
	Delivered   bool      `json:"delivered"`
	Error       string    `json:"error,omitempty"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// NotificationService exposes the notification log.
type NotificationService struct {
	repo   notificationDomain.RecordRepository
	logger *zap.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(repo notificationDomain.RecordRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, logger: logger}
}

// GetBookingNotifications returns every email attempt for a booking, oldest first.
func (s *NotificationService) GetBookingNotifications(ctx context.Context, bookingID uuid.UUID) ([]NotificationRecordDTO, error) {
	records, err := s.repo.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}

	dtos := make([]NotificationRecordDTO, len(records))
	for i, r := range records {
		dtos[i] = toNotificationRecordDTO(r)
	}
	return dtos, nil
}

func toNotificationRecordDTO(r *notificationDomain.Record) NotificationRecordDTO {
	return NotificationRecordDTO{
		ID:          r.ID(),
		BookingID:   r.BookingID(),
		Template:    string(r.Template()),
		Recipient:   r.Recipient(),
		Delivered:   r.Delivered(),
		Error:       r.ErrorText(),
		AttemptedAt: r.AttemptedAt(),
	}
}

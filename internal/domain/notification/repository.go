package notification

import (
	"context"

	"github.com/google/uuid"
)

// RecordRepository defines persistence for delivery records.
type RecordRepository interface {
	Save(ctx context.Context, record *Record) error
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*Record, error)
}

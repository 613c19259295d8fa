package application

import (
	"context"

	"github.com/google/uuid"

	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
)

// BookingQueries answers the single-active-booking questions intake flows ask.
type BookingQueries struct {
	repo bookingDomain.Repository
}

// NewBookingQueries creates a BookingQueries.
func NewBookingQueries(repo bookingDomain.Repository) *BookingQueries {
	return &BookingQueries{repo: repo}
}

// HasActiveBooking reports whether the owner holds an active booking other than exclude.
func (q *BookingQueries) HasActiveBooking(ctx context.Context, ownerID uuid.UUID, exclude ...uuid.UUID) (bool, error) {
	return q.repo.ExistsByOwner(ctx, ownerID, bookingDomain.ActiveStatuses, exclude...)
}

// GetActiveBooking returns the owner's most recent active booking, or nil.
func (q *BookingQueries) GetActiveBooking(ctx context.Context, ownerID uuid.UUID) (*bookingDomain.Booking, error) {
	return q.repo.FindLatestByOwner(ctx, ownerID, bookingDomain.ActiveStatuses, nil)
}

// GetCancellableBooking returns the owner's most recent cancellable booking, optionally
// narrowed to an acknowledgement ID, or nil.
func (q *BookingQueries) GetCancellableBooking(ctx context.Context, ownerID uuid.UUID, ackID *string) (*bookingDomain.Booking, error) {
	return q.repo.FindLatestByOwner(ctx, ownerID, bookingDomain.CancellableStatuses, ackID)
}

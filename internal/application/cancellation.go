package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
)

// CancelByUser cancels on behalf of the requester. Confirmed bookings are refused
// inside the cutoff before the session.
func (e *LifecycleEngine) CancelByUser(ctx context.Context, bk *bookingDomain.Booking, reason string) error {
	return e.apply(ctx, bk, "cancel booking by user", func(now time.Time) error {
		return bk.CancelByUser(reason, now)
	})
}

// CancelByAdmin cancels an approved, payment-pending or confirmed booking.
func (e *LifecycleEngine) CancelByAdmin(ctx context.Context, bk *bookingDomain.Booking, reason string) error {
	return e.apply(ctx, bk, "cancel booking by admin", func(now time.Time) error {
		return bk.CancelByAdmin(reason, now)
	})
}

// RequestCancellation issues and persists a cancellation token for a confirmed booking.
func (e *LifecycleEngine) RequestCancellation(ctx context.Context, bk *bookingDomain.Booking) (uuid.UUID, error) {
	var token uuid.UUID
	err := e.apply(ctx, bk, "request cancellation", func(now time.Time) error {
		var err error
		token, err = bk.RequestCancellation(now)
		return err
	})
	if err != nil {
		return uuid.Nil, err
	}
	return token, nil
}

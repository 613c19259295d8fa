package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for booking aggregates.
type Repository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByAcknowledgementID retrieves a booking by its public code.
	FindByAcknowledgementID(ctx context.Context, ackID string) (*Booking, error)

	// FindByVerificationToken retrieves the booking holding an email verification token.
	FindByVerificationToken(ctx context.Context, token uuid.UUID) (*Booking, error)

	// FindByCancellationToken retrieves the booking holding a cancellation token.
	FindByCancellationToken(ctx context.Context, token uuid.UUID) (*Booking, error)

	// FindByPaymentReference retrieves the booking holding a payment reference.
	FindByPaymentReference(ctx context.Context, reference string) (*Booking, error)

	// FindLatestByOwner returns the most recently created booking of the owner whose
	// status is in statuses, optionally narrowed to an acknowledgement ID. It returns
	// nil without error when none matches.
	FindLatestByOwner(ctx context.Context, ownerID uuid.UUID, statuses []Status, ackID *string) (*Booking, error)

	// ExistsByOwner reports whether the owner holds a booking in statuses other than
	// the excluded IDs.
	ExistsByOwner(ctx context.Context, ownerID uuid.UUID, statuses []Status, exclude ...uuid.UUID) (bool, error)

	// FindOverlapping returns approved or confirmed bookings of the provider whose slot
	// intersects [start, end), excluding the given booking.
	FindOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time, exclude uuid.UUID) ([]*Booking, error)

	// ListAll retrieves all bookings with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Booking, int64, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// Update persists the changed columns of an existing booking with optimistic locking.
	Update(ctx context.Context, booking *Booking) error
}

// Package contracts holds the Kafka topics and payloads shared with other services.
package contracts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TopicBookingEvents = "booking.events"
	TopicPaymentEvents = "payment.events"

	EventSource = "service-booking"
)

// Booking lifecycle event types.
const (
	BookingDrafted         = "booking.drafted"
	BookingSubmitted       = "booking.submitted"
	BookingApproved        = "booking.approved"
	BookingRejected        = "booking.rejected"
	BookingPaymentPending  = "booking.payment_pending"
	BookingConfirmed       = "booking.confirmed"
	BookingPaymentFailed   = "booking.payment_failed"
	BookingCompleted       = "booking.completed"
	BookingCancelled       = "booking.cancelled"
	BookingOverlapDetected = "booking.overlap_detected"
)

// Payment event types consumed from the payment service.
const (
	PaymentCompleted = "payment.completed"
	PaymentFailed    = "payment.failed"
)

// BookingLifecycleEvent is published on every persisted status change.
type BookingLifecycleEvent struct {
	BookingID         uuid.UUID        `json:"booking_id"`
	AcknowledgementID string           `json:"acknowledgement_id"`
	OwnerID           uuid.UUID        `json:"owner_id"`
	FromStatus        string           `json:"from_status"`
	ToStatus          string           `json:"to_status"`
	Mode              string           `json:"mode"`
	ProviderID        *uuid.UUID       `json:"provider_id,omitempty"`
	SlotStart         *time.Time       `json:"slot_start,omitempty"`
	SlotEnd           *time.Time       `json:"slot_end,omitempty"`
	Amount            *decimal.Decimal `json:"amount,omitempty"`
	PaymentReference  string           `json:"payment_reference,omitempty"`
	Reason            string           `json:"reason,omitempty"`
	Actor             string           `json:"actor,omitempty"`
	OccurredAt        time.Time        `json:"occurred_at"`
}

// BookingOverlapEvent reports an approved slot that intersects another booking of the
// same provider. It is advisory.
type BookingOverlapEvent struct {
	BookingID             uuid.UUID   `json:"booking_id"`
	ProviderID            uuid.UUID   `json:"provider_id"`
	OverlappingBookingIDs []uuid.UUID `json:"overlapping_booking_ids"`
	OccurredAt            time.Time   `json:"occurred_at"`
}

// PaymentCompletedEvent is emitted by the payment service once a reference is paid.
type PaymentCompletedEvent struct {
	PaymentReference string          `json:"payment_reference"`
	Amount           decimal.Decimal `json:"amount"`
	Provider         string          `json:"provider,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

// PaymentFailedEvent is emitted by the payment service when a reference fails.
type PaymentFailedEvent struct {
	PaymentReference string    `json:"payment_reference"`
	Reason           string    `json:"reason,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Template names a transactional email.
type Template string

const (
	TemplateVerification        Template = "booking_verification"
	TemplateCancellationRequest Template = "cancellation_verification"
	TemplateApproved            Template = "booking_approved"
	TemplateRejected            Template = "booking_rejected"
	TemplateConfirmed           Template = "booking_confirmed"
)

// IsValid returns true if the template is recognized.
func (t Template) IsValid() bool {
	switch t {
	case TemplateVerification, TemplateCancellationRequest, TemplateApproved,
		TemplateRejected, TemplateConfirmed:
		return true
	}
	return false
}

// Record is one attempted delivery of a transactional email.
type Record struct {
	id          uuid.UUID
	bookingID   uuid.UUID
	template    Template
	recipient   string
	delivered   bool
	errorText   string
	attemptedAt time.Time
}

// NewRecord creates a delivery record.
func NewRecord(bookingID uuid.UUID, template Template, recipient string, delivered bool, errorText string, attemptedAt time.Time) (*Record, error) {
	if !template.IsValid() {
		return nil, fmt.Errorf("invalid notification template: %s", template)
	}
	if recipient == "" {
		return nil, fmt.Errorf("recipient is required")
	}

	return &Record{
		id:          uuid.New(),
		bookingID:   bookingID,
		template:    template,
		recipient:   recipient,
		delivered:   delivered,
		errorText:   errorText,
		attemptedAt: attemptedAt.UTC(),
	}, nil
}

// Reconstruct rebuilds a Record from persistence.
func Reconstruct(id, bookingID uuid.UUID, template Template, recipient string, delivered bool, errorText string, attemptedAt time.Time) *Record {
	return &Record{
		id:          id,
		bookingID:   bookingID,
		template:    template,
		recipient:   recipient,
		delivered:   delivered,
		errorText:   errorText,
		attemptedAt: attemptedAt,
	}
}

// Getters.
func (r *Record) ID() uuid.UUID          { return r.id }
func (r *Record) BookingID() uuid.UUID   { return r.bookingID }
func (r *Record) Template() Template     { return r.template }
func (r *Record) Recipient() string      { return r.recipient }
func (r *Record) Delivered() bool        { return r.delivered }
func (r *Record) ErrorText() string      { return r.errorText }
func (r *Record) AttemptedAt() time.Time { return r.attemptedAt }

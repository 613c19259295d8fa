package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
)

// PublicBookingDTO is the requester-facing view of a booking.
type PublicBookingDTO struct {
	AcknowledgementID  string     `json:"acknowledgement_id"`
	Status             string     `json:"status"`
	PreferredDate      *string    `json:"preferred_date"`
	PreferredPeriod    *string    `json:"preferred_period"`
	PreferredTimeStart *string    `json:"preferred_time_start"`
	PreferredTimeEnd   *string    `json:"preferred_time_end"`
	Mode               string     `json:"mode"`
	ApprovedSlotStart  *time.Time `json:"approved_slot_start"`
	ApprovedSlotEnd    *time.Time `json:"approved_slot_end"`
	AddToCalendarURL   *string    `json:"add_to_calendar_url"`
	Amount             *string    `json:"amount"`
	Timeline           []string   `json:"timeline"`
	CreatedAt          time.Time  `json:"created_at"`
}

// BookingDTO is the admin representation of a booking.
type BookingDTO struct {
	ID                 uuid.UUID                `json:"id"`
	AcknowledgementID  string                   `json:"acknowledgement_id"`
	OwnerID            uuid.UUID                `json:"owner_id"`
	Status             string                   `json:"status"`
	Details            bookingDomain.Details    `json:"details"`
	Preference         bookingDomain.Preference `json:"preference"`
	Mode               string                   `json:"mode"`
	PaymentMode        *string                  `json:"payment_mode,omitempty"`
	ProviderID         *uuid.UUID               `json:"provider_id,omitempty"`
	CorporateID        *uuid.UUID               `json:"corporate_id,omitempty"`
	ApprovedSlotStart  *time.Time               `json:"approved_slot_start,omitempty"`
	ApprovedSlotEnd    *time.Time               `json:"approved_slot_end,omitempty"`
	Amount             *decimal.Decimal         `json:"amount,omitempty"`
	PaymentReference   *string                  `json:"payment_reference,omitempty"`
	EmailVerified      bool                     `json:"email_verified"`
	RejectionReason    string                   `json:"rejection_reason,omitempty"`
	AlternateSlots     string                   `json:"alternate_slots,omitempty"`
	CancellationReason string                   `json:"cancellation_reason,omitempty"`
	CancelledBy        *string                  `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time               `json:"cancelled_at,omitempty"`
	ConfirmedAt        *time.Time               `json:"confirmed_at,omitempty"`
	Timeline           []string                 `json:"timeline"`
	Version            int64                    `json:"version"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

func toPublicBookingDTO(bk *bookingDomain.Booking) PublicBookingDTO {
	pref := bk.Preference()
	dto := PublicBookingDTO{
		AcknowledgementID:  bk.AcknowledgementID(),
		Status:             string(bk.Status()),
		PreferredTimeStart: optionalString(pref.TimeStart),
		PreferredTimeEnd:   optionalString(pref.TimeEnd),
		Mode:               string(bk.Mode()),
		ApprovedSlotStart:  bk.ApprovedSlotStart(),
		ApprovedSlotEnd:    bk.ApprovedSlotEnd(),
		AddToCalendarURL:   optionalString(bk.CalendarLink()),
		Timeline:           timelineStrings(bk),
		CreatedAt:          bk.CreatedAt(),
	}
	if pref.Date != nil {
		d := pref.Date.Format("2006-01-02")
		dto.PreferredDate = &d
	}
	if pref.Period != nil {
		p := string(*pref.Period)
		dto.PreferredPeriod = &p
	}
	if a := bk.Amount(); a != nil {
		s := a.StringFixed(2)
		dto.Amount = &s
	}
	return dto
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	dto := BookingDTO{
		ID:                 bk.ID(),
		AcknowledgementID:  bk.AcknowledgementID(),
		OwnerID:            bk.OwnerID(),
		Status:             string(bk.Status()),
		Details:            bk.Details(),
		Preference:         bk.Preference(),
		Mode:               string(bk.Mode()),
		ProviderID:         bk.ProviderID(),
		CorporateID:        bk.CorporateID(),
		ApprovedSlotStart:  bk.ApprovedSlotStart(),
		ApprovedSlotEnd:    bk.ApprovedSlotEnd(),
		Amount:             bk.Amount(),
		PaymentReference:   bk.PaymentReference(),
		EmailVerified:      bk.EmailVerified(),
		RejectionReason:    bk.RejectionReason(),
		AlternateSlots:     bk.AlternateSlots(),
		CancellationReason: bk.CancellationReason(),
		CancelledAt:        bk.CancelledAt(),
		ConfirmedAt:        bk.ConfirmedAt(),
		Timeline:           timelineStrings(bk),
		Version:            bk.Version(),
		CreatedAt:          bk.CreatedAt(),
		UpdatedAt:          bk.UpdatedAt(),
	}
	if pm := bk.PaymentMode(); pm != nil {
		s := string(*pm)
		dto.PaymentMode = &s
	}
	if by := bk.CancelledBy(); by != nil {
		s := string(*by)
		dto.CancelledBy = &s
	}
	return dto
}

func toBookingDTOs(bookings []*bookingDomain.Booking) []BookingDTO {
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return dtos
}

func timelineStrings(bk *bookingDomain.Booking) []string {
	timeline := bk.Timeline()
	out := make([]string, len(timeline))
	for i, st := range timeline {
		out[i] = string(st)
	}
	return out
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

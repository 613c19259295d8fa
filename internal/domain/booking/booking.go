package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const acknowledgementChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Details is the requester snapshot captured at intake.
type Details struct {
	FullName         string `json:"full_name"`
	PhoneNumber      string `json:"phone_number"`
	City             string `json:"city,omitempty"`
	State            string `json:"state,omitempty"`
	Country          string `json:"country,omitempty"`
	Age              *int   `json:"age,omitempty"`
	Gender           string `json:"gender,omitempty"`
	EmergencyContact string `json:"emergency_contact,omitempty"`
	UserMessage      string `json:"user_message,omitempty"`
}

// Preference is the requester's scheduling wish. It never decides the final slot.
type Preference struct {
	Date      *time.Time `json:"date,omitempty"`
	Period    *Period    `json:"period,omitempty"`
	TimeStart string     `json:"time_start,omitempty"`
	TimeEnd   string     `json:"time_end,omitempty"`
}

// Snapshot is the full persisted state of a booking.
type Snapshot struct {
	ID                uuid.UUID
	AcknowledgementID string
	OwnerID           uuid.UUID
	Status            Status

	Details     Details
	Preference  Preference
	Mode        Mode
	PaymentMode *PaymentMode

	ProviderID        *uuid.UUID
	CorporateID       *uuid.UUID
	ApprovedSlotStart *time.Time
	ApprovedSlotEnd   *time.Time
	Amount            *decimal.Decimal

	RejectionReason string
	AlternateSlots  string

	EmailVerificationToken *uuid.UUID
	CancellationToken      *uuid.UUID
	PaymentReference       *string

	EmailVerified        bool
	ConsentGiven         bool
	ApprovalNotified     bool
	RejectionNotified    bool
	ConfirmationNotified bool

	ConsentGivenAt              *time.Time
	EmailVerifiedAt             *time.Time
	LastVerificationEmailSentAt *time.Time
	SubmittedAt                 *time.Time
	ApprovedAt                  *time.Time
	RejectedAt                  *time.Time
	PaymentRequestedAt          *time.Time
	PaymentFailedAt             *time.Time
	ConfirmedAt                 *time.Time
	CompletedAt                 *time.Time
	CancellationRequestedAt     *time.Time
	CancelledAt                 *time.Time

	CancellationReason string
	CancelledBy        *Actor

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Booking is the aggregate root for the booking domain.
type Booking struct {
	s     Snapshot
	dirty map[string]struct{}
}

// DraftParams holds the intake data for a new booking.
type DraftParams struct {
	OwnerID      uuid.UUID
	Details      Details
	Preference   Preference
	Mode         Mode
	PaymentMode  *PaymentMode
	ConsentGiven bool
}

// Approval holds the admin decision applied by Approve.
type Approval struct {
	SlotStart   time.Time
	SlotEnd     time.Time
	Amount      *decimal.Decimal
	ProviderID  *uuid.UUID
	CorporateID *uuid.UUID
}

// generateAcknowledgementID creates a public code in the format "MS-XXXXXX".
func generateAcknowledgementID() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(acknowledgementChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate acknowledgement ID: %w", err)
		}
		result[i] = acknowledgementChars[n.Int64()]
	}
	return "MS-" + string(result), nil
}

// NewDraft creates a new Booking in DRAFT with a fresh email verification token.
func NewDraft(p DraftParams, now time.Time) (*Booking, error) {
	if p.OwnerID == uuid.Nil {
		return nil, validationError("owner ID is required")
	}
	if !p.ConsentGiven {
		return nil, validationError("privacy policy consent required")
	}
	if strings.TrimSpace(p.Details.FullName) == "" {
		return nil, validationError("full name is required")
	}
	if p.Details.PhoneNumber == "" {
		return nil, validationError("phone number is required")
	}
	if !isDigits(p.Details.PhoneNumber) {
		return nil, validationError("phone number must contain digits only")
	}
	if p.Details.EmergencyContact != "" && !isDigits(p.Details.EmergencyContact) {
		return nil, validationError("emergency contact must contain digits only")
	}
	if !p.Mode.IsValid() {
		return nil, validationError(fmt.Sprintf("invalid mode: %s", p.Mode))
	}
	if p.PaymentMode != nil && !p.PaymentMode.IsValid() {
		return nil, validationError(fmt.Sprintf("invalid payment mode: %s", *p.PaymentMode))
	}
	if err := p.Preference.validate(); err != nil {
		return nil, err
	}

	ackID, err := generateAcknowledgementID()
	if err != nil {
		return nil, err
	}

	details := p.Details
	if details.Country == "" {
		details.Country = "India"
	}

	token := uuid.New()
	now = now.UTC()
	return &Booking{
		s: Snapshot{
			ID:                     uuid.New(),
			AcknowledgementID:      ackID,
			OwnerID:                p.OwnerID,
			Status:                 StatusDraft,
			Details:                details,
			Preference:             p.Preference,
			Mode:                   p.Mode,
			PaymentMode:            p.PaymentMode,
			EmailVerificationToken: &token,
			ConsentGiven:           true,
			ConsentGivenAt:         &now,
			Version:                1,
			CreatedAt:              now,
			UpdatedAt:              now,
		},
	}, nil
}

func (p Preference) validate() error {
	if p.Period != nil && !p.Period.IsValid() {
		return validationError(fmt.Sprintf("invalid preferred period: %s", *p.Period))
	}
	var start, end time.Time
	var err error
	if p.TimeStart != "" {
		if start, err = time.Parse("15:04", p.TimeStart); err != nil {
			return validationError("preferred start time must be HH:MM")
		}
	}
	if p.TimeEnd != "" {
		if end, err = time.Parse("15:04", p.TimeEnd); err != nil {
			return validationError("preferred end time must be HH:MM")
		}
	}
	if p.TimeStart != "" && p.TimeEnd != "" && !end.After(start) {
		return validationError("preferred end time must be after start time")
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Reconstruct rebuilds a Booking from persistence data (no validation).
func Reconstruct(s Snapshot) *Booking {
	return &Booking{s: s}
}

// Snapshot returns a copy of the booking state for persistence and projections.
func (b *Booking) Snapshot() Snapshot { return b.s }

// Restore resets the aggregate to an earlier snapshot and drops tracked changes.
func (b *Booking) Restore(s Snapshot) {
	b.s = s
	b.dirty = nil
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.s.ID }

// AcknowledgementID returns the public booking code.
func (b *Booking) AcknowledgementID() string { return b.s.AcknowledgementID }

// OwnerID returns the requesting identity.
func (b *Booking) OwnerID() uuid.UUID { return b.s.OwnerID }

// Status returns the current booking status.
func (b *Booking) Status() Status { return b.s.Status }

// Details returns the requester snapshot.
func (b *Booking) Details() Details { return b.s.Details }

// Preference returns the requester's scheduling wish.
func (b *Booking) Preference() Preference { return b.s.Preference }

// Mode returns the session mode.
func (b *Booking) Mode() Mode { return b.s.Mode }

// PaymentMode returns the payment mode, or nil if unset.
func (b *Booking) PaymentMode() *PaymentMode { return b.s.PaymentMode }

// ProviderID returns the assigned provider, or nil.
func (b *Booking) ProviderID() *uuid.UUID { return b.s.ProviderID }

// CorporateID returns the sponsoring corporate client, or nil.
func (b *Booking) CorporateID() *uuid.UUID { return b.s.CorporateID }

// ApprovedSlotStart returns the start of the assigned session window.
func (b *Booking) ApprovedSlotStart() *time.Time { return b.s.ApprovedSlotStart }

// ApprovedSlotEnd returns the end of the assigned session window.
func (b *Booking) ApprovedSlotEnd() *time.Time { return b.s.ApprovedSlotEnd }

// Amount returns the approved amount, or nil before approval.
func (b *Booking) Amount() *decimal.Decimal { return b.s.Amount }

// RejectionReason returns the admin's rejection reason.
func (b *Booking) RejectionReason() string { return b.s.RejectionReason }

// AlternateSlots returns the alternate slots suggested on rejection.
func (b *Booking) AlternateSlots() string { return b.s.AlternateSlots }

// EmailVerificationToken returns the outstanding verification token, or nil.
func (b *Booking) EmailVerificationToken() *uuid.UUID { return b.s.EmailVerificationToken }

// CancellationToken returns the outstanding cancellation token, or nil.
func (b *Booking) CancellationToken() *uuid.UUID { return b.s.CancellationToken }

// PaymentReference returns the outstanding payment reference, or nil.
func (b *Booking) PaymentReference() *string { return b.s.PaymentReference }

// EmailVerified reports whether the requester confirmed their email.
func (b *Booking) EmailVerified() bool { return b.s.EmailVerified }

// ApprovalNotified reports whether the approval email was attempted.
func (b *Booking) ApprovalNotified() bool { return b.s.ApprovalNotified }

// RejectionNotified reports whether the rejection email was attempted.
func (b *Booking) RejectionNotified() bool { return b.s.RejectionNotified }

// ConfirmationNotified reports whether the confirmation email was attempted.
func (b *Booking) ConfirmationNotified() bool { return b.s.ConfirmationNotified }

// LastVerificationEmailSentAt returns when a verification link was last sent.
func (b *Booking) LastVerificationEmailSentAt() *time.Time { return b.s.LastVerificationEmailSentAt }

// SubmittedAt returns when the booking entered PENDING.
func (b *Booking) SubmittedAt() *time.Time { return b.s.SubmittedAt }

// ConfirmedAt returns when the booking entered CONFIRMED.
func (b *Booking) ConfirmedAt() *time.Time { return b.s.ConfirmedAt }

// CancelledAt returns when the booking was cancelled.
func (b *Booking) CancelledAt() *time.Time { return b.s.CancelledAt }

// CancellationReason returns the recorded cancellation reason.
func (b *Booking) CancellationReason() string { return b.s.CancellationReason }

// CancelledBy returns who cancelled the booking, or nil.
func (b *Booking) CancelledBy() *Actor { return b.s.CancelledBy }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.s.Version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.s.CreatedAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.s.UpdatedAt }

// --- Change tracking ---

// Column names used for partial persistence.
const (
	ColStatus                      = "status"
	ColSubmittedAt                 = "submitted_at"
	ColApprovedSlotStart           = "approved_slot_start"
	ColApprovedSlotEnd             = "approved_slot_end"
	ColAmount                      = "amount"
	ColProviderID                  = "provider_id"
	ColCorporateID                 = "corporate_id"
	ColApprovedAt                  = "approved_at"
	ColConfirmedAt                 = "confirmed_at"
	ColRejectionReason             = "rejection_reason"
	ColAlternateSlots              = "alternate_slots"
	ColRejectedAt                  = "rejected_at"
	ColPaymentReference            = "payment_reference"
	ColPaymentRequestedAt          = "payment_requested_at"
	ColPaymentFailedAt             = "payment_failed_at"
	ColCompletedAt                 = "completed_at"
	ColCancellationReason          = "cancellation_reason"
	ColCancelledAt                 = "cancelled_at"
	ColCancelledBy                 = "cancelled_by"
	ColCancellationToken           = "cancellation_token"
	ColCancellationRequestedAt     = "cancellation_requested_at"
	ColEmailVerified               = "email_verified"
	ColEmailVerifiedAt             = "email_verified_at"
	ColEmailVerificationToken      = "email_verification_token"
	ColLastVerificationEmailSentAt = "last_verification_email_sent_at"
	ColApprovalNotified            = "approval_notified"
	ColRejectionNotified           = "rejection_notified"
	ColConfirmationNotified        = "confirmation_notified"
)

func (b *Booking) mark(now time.Time, cols ...string) {
	if b.dirty == nil {
		b.dirty = make(map[string]struct{})
	}
	for _, c := range cols {
		b.dirty[c] = struct{}{}
	}
	b.s.UpdatedAt = now
}

// ChangedColumns returns the columns touched since the last ClearChanges, sorted.
func (b *Booking) ChangedColumns() []string {
	cols := make([]string, 0, len(b.dirty))
	for c := range b.dirty {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// HasChanges reports whether any column was touched.
func (b *Booking) HasChanges() bool { return len(b.dirty) > 0 }

// ClearChanges resets change tracking after a successful persist.
func (b *Booking) ClearChanges() { b.dirty = nil }

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.s.Version++
}

// --- Behavior ---

// IsPaymentRequired is false only for offline sessions paid offline.
func (b *Booking) IsPaymentRequired() bool {
	return !(b.s.Mode == ModeOffline &&
		b.s.PaymentMode != nil && *b.s.PaymentMode == PaymentModeOffline)
}

// Submit transitions the booking from DRAFT to PENDING.
func (b *Booking) Submit(now time.Time) error {
	if err := AssertTransition(b.s.Status, StatusPending); err != nil {
		return err
	}
	now = now.UTC()
	b.s.Status = StatusPending
	b.s.SubmittedAt = &now
	b.mark(now, ColStatus, ColSubmittedAt)
	return nil
}

// Approve assigns the slot and amount and moves PENDING to APPROVED. Offline sessions
// paid offline have no payment step, so they pass through APPROVED and land on
// CONFIRMED in the same call.
func (b *Booking) Approve(a Approval, now time.Time) error {
	if err := AssertTransition(b.s.Status, StatusApproved); err != nil {
		return err
	}
	if !a.SlotEnd.After(a.SlotStart) {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidSlot)
	}
	if a.Amount == nil {
		return ErrMissingAmount
	}
	if a.Amount.IsNegative() {
		return validationError("amount must not be negative")
	}

	collapse := !b.IsPaymentRequired()
	if collapse {
		if err := AssertTransition(StatusApproved, StatusConfirmed); err != nil {
			return err
		}
	}

	now = now.UTC()
	start, end := a.SlotStart.UTC(), a.SlotEnd.UTC()
	amount := *a.Amount
	b.s.ApprovedSlotStart = &start
	b.s.ApprovedSlotEnd = &end
	b.s.Amount = &amount
	b.s.ProviderID = a.ProviderID
	b.s.CorporateID = a.CorporateID
	b.s.ApprovedAt = &now
	b.s.Status = StatusApproved
	b.mark(now, ColStatus, ColApprovedSlotStart, ColApprovedSlotEnd, ColAmount,
		ColProviderID, ColCorporateID, ColApprovedAt)

	if collapse {
		b.s.Status = StatusConfirmed
		b.s.ConfirmedAt = &now
		b.mark(now, ColConfirmedAt)
	}
	return nil
}

// Reject moves a PENDING booking to REJECTED with a mandatory reason.
func (b *Booking) Reject(reason, alternateSlots string, now time.Time) error {
	if b.s.Status != StatusPending {
		return &InvalidTransitionError{From: b.s.Status, To: StatusRejected}
	}
	if err := AssertTransition(b.s.Status, StatusRejected); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrMissingReason
	}
	now = now.UTC()
	b.s.Status = StatusRejected
	b.s.RejectionReason = reason
	b.s.AlternateSlots = alternateSlots
	b.s.RejectedAt = &now
	b.mark(now, ColStatus, ColRejectionReason, ColAlternateSlots, ColRejectedAt)
	return nil
}

// DuplicateBookingReason is recorded when a draft is verified while another booking of
// the same identity is active.
const DuplicateBookingReason = "Another active booking exists"

// RejectDuplicate moves a DRAFT to REJECTED because its owner already holds an
// active booking. The verification token is retired with it.
func (b *Booking) RejectDuplicate(now time.Time) error {
	if b.s.Status != StatusDraft {
		return invalidState("reject duplicate", b.s.Status)
	}
	if err := AssertTransition(b.s.Status, StatusRejected); err != nil {
		return err
	}
	now = now.UTC()
	b.s.Status = StatusRejected
	b.s.RejectionReason = DuplicateBookingReason
	b.s.RejectedAt = &now
	b.s.EmailVerificationToken = nil
	b.mark(now, ColStatus, ColRejectionReason, ColRejectedAt, ColEmailVerificationToken)
	return nil
}

// MoveToPaymentPending records the payment reference and moves APPROVED to
// PAYMENT_PENDING. It reports false without changes when already PAYMENT_PENDING.
func (b *Booking) MoveToPaymentPending(reference string, now time.Time) (bool, error) {
	if b.s.Status == StatusPaymentPending {
		return false, nil
	}
	if err := AssertTransition(b.s.Status, StatusPaymentPending); err != nil {
		return false, err
	}
	if reference == "" {
		return false, validationError("payment reference is required")
	}
	now = now.UTC()
	b.s.Status = StatusPaymentPending
	b.s.PaymentReference = &reference
	b.s.PaymentRequestedAt = &now
	b.mark(now, ColStatus, ColPaymentReference, ColPaymentRequestedAt)
	return true, nil
}

// Confirm moves the booking to CONFIRMED.
func (b *Booking) Confirm(now time.Time) error {
	if err := AssertTransition(b.s.Status, StatusConfirmed); err != nil {
		return err
	}
	now = now.UTC()
	b.s.Status = StatusConfirmed
	b.s.ConfirmedAt = &now
	b.mark(now, ColStatus, ColConfirmedAt)
	return nil
}

// Complete marks a confirmed session as held.
func (b *Booking) Complete(now time.Time) error {
	if err := AssertTransition(b.s.Status, StatusCompleted); err != nil {
		return err
	}
	now = now.UTC()
	b.s.Status = StatusCompleted
	b.s.CompletedAt = &now
	b.mark(now, ColStatus, ColCompletedAt)
	return nil
}

// FailPayment moves PAYMENT_PENDING to PAYMENT_FAILED. It reports false without
// changes when the failure was already recorded.
func (b *Booking) FailPayment(now time.Time) (bool, error) {
	if b.s.Status == StatusPaymentFailed {
		return false, nil
	}
	if err := AssertTransition(b.s.Status, StatusPaymentFailed); err != nil {
		return false, err
	}
	now = now.UTC()
	b.s.Status = StatusPaymentFailed
	b.s.PaymentFailedAt = &now
	b.mark(now, ColStatus, ColPaymentFailedAt)
	return true, nil
}

// Cancel moves the booking to CANCELLED without actor-specific rules.
func (b *Booking) Cancel(reason string, now time.Time) error {
	if b.s.Status.IsTerminal() {
		return fmt.Errorf("%w: status %s", ErrNotCancellable, b.s.Status)
	}
	if err := AssertTransition(b.s.Status, StatusCancelled); err != nil {
		return err
	}
	b.applyCancel(b.defaultCancelReason(reason), now)
	return nil
}

func (b *Booking) defaultCancelReason(reason string) string {
	if reason = strings.TrimSpace(reason); reason != "" {
		return reason
	}
	if b.s.Status == StatusPaymentPending {
		return "Cancelled before payment"
	}
	return "Cancelled by user"
}

func (b *Booking) applyCancel(reason string, now time.Time) {
	now = now.UTC()
	b.s.Status = StatusCancelled
	b.s.CancellationReason = reason
	b.s.CancelledAt = &now
	b.mark(now, ColStatus, ColCancellationReason, ColCancelledAt)
}

// VerifyEmail latches the email-verified flag and retires the verification token.
// It reports false when the email was already verified and no token was outstanding.
func (b *Booking) VerifyEmail(now time.Time) bool {
	changed := false
	now = now.UTC()
	if !b.s.EmailVerified {
		b.s.EmailVerified = true
		b.s.EmailVerifiedAt = &now
		b.mark(now, ColEmailVerified, ColEmailVerifiedAt)
		changed = true
	}
	if b.s.EmailVerificationToken != nil {
		b.s.EmailVerificationToken = nil
		b.mark(now, ColEmailVerificationToken)
		changed = true
	}
	return changed
}

// IssueVerificationToken returns the outstanding verification token, creating one if
// none is outstanding.
func (b *Booking) IssueVerificationToken(now time.Time) uuid.UUID {
	if b.s.EmailVerificationToken != nil {
		return *b.s.EmailVerificationToken
	}
	token := uuid.New()
	b.s.EmailVerificationToken = &token
	b.mark(now.UTC(), ColEmailVerificationToken)
	return token
}

// MarkVerificationEmailSent stamps the last verification email time.
func (b *Booking) MarkVerificationEmailSent(now time.Time) {
	now = now.UTC()
	b.s.LastVerificationEmailSentAt = &now
	b.mark(now, ColLastVerificationEmailSentAt)
}

// MarkApprovalNotified latches the approval flag. It reports whether it was unset.
func (b *Booking) MarkApprovalNotified(now time.Time) bool {
	if b.s.ApprovalNotified {
		return false
	}
	b.s.ApprovalNotified = true
	b.mark(now.UTC(), ColApprovalNotified)
	return true
}

// MarkRejectionNotified latches the rejection flag. It reports whether it was unset.
func (b *Booking) MarkRejectionNotified(now time.Time) bool {
	if b.s.RejectionNotified {
		return false
	}
	b.s.RejectionNotified = true
	b.mark(now.UTC(), ColRejectionNotified)
	return true
}

// MarkConfirmationNotified latches the confirmation flag. It reports whether it was unset.
func (b *Booking) MarkConfirmationNotified(now time.Time) bool {
	if b.s.ConfirmationNotified {
		return false
	}
	b.s.ConfirmationNotified = true
	b.mark(now.UTC(), ColConfirmationNotified)
	return true
}

// Timeline reconstructs the visited statuses from the recorded timestamps.
func (b *Booking) Timeline() []Status {
	timeline := make([]Status, 0, 7)
	if !b.s.CreatedAt.IsZero() {
		timeline = append(timeline, StatusDraft)
	}
	steps := []struct {
		at     *time.Time
		status Status
	}{
		{b.s.SubmittedAt, StatusPending},
		{b.s.ApprovedAt, StatusApproved},
		{b.s.PaymentRequestedAt, StatusPaymentPending},
		{b.s.ConfirmedAt, StatusConfirmed},
		{b.s.CancelledAt, StatusCancelled},
		{b.s.RejectedAt, StatusRejected},
	}
	for _, step := range steps {
		if step.at != nil {
			timeline = append(timeline, step.status)
		}
	}
	return timeline
}

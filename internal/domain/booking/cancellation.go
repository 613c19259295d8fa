package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CancellationCutoff is how long before the session a confirmed booking stops being
// cancellable by its requester.
const CancellationCutoff = 24 * time.Hour

var adminCancellableSet = newStatusSet(StatusApproved, StatusPaymentPending, StatusConfirmed)

// CheckCancellationWindow fails when now is past the cutoff before the approved slot.
// Only confirmed bookings are subject to it.
func (b *Booking) CheckCancellationWindow(now time.Time) error {
	if b.s.Status != StatusConfirmed {
		return nil
	}
	if b.s.ApprovedSlotStart == nil {
		return fmt.Errorf("%w: approved slot not found", ErrInvalidSlot)
	}
	cutoff := b.s.ApprovedSlotStart.Add(-CancellationCutoff)
	if now.After(cutoff) {
		return fmt.Errorf("%w: cancellation allowed only up to %d hours before the session",
			ErrCancellationWindowClosed, int(CancellationCutoff.Hours()))
	}
	return nil
}

// CancelByUser applies requester cancellation: immediate before confirmation, and
// subject to the cutoff once confirmed.
func (b *Booking) CancelByUser(reason string, now time.Time) error {
	if !b.s.Status.IsCancellable() {
		return fmt.Errorf("%w: status %s", ErrNotCancellable, b.s.Status)
	}
	if err := AssertTransition(b.s.Status, StatusCancelled); err != nil {
		return err
	}
	if err := b.CheckCancellationWindow(now); err != nil {
		return err
	}
	b.applyCancel(b.defaultCancelReason(reason), now)
	b.setCancelledBy(ActorUser, now)
	b.clearInFlightArtifacts(now)
	return nil
}

// CancelByAdmin applies admin cancellation. Pending bookings go through Reject instead.
func (b *Booking) CancelByAdmin(reason string, now time.Time) error {
	if !adminCancellableSet.has(b.s.Status) {
		return fmt.Errorf("%w: status %s", ErrNotCancellable, b.s.Status)
	}
	if err := AssertTransition(b.s.Status, StatusCancelled); err != nil {
		return err
	}
	if reason == "" {
		reason = "Cancelled by admin"
	}
	b.applyCancel(reason, now)
	b.setCancelledBy(ActorAdmin, now)
	b.clearInFlightArtifacts(now)
	return nil
}

// RequestCancellation issues a one-time cancellation token for a confirmed booking.
func (b *Booking) RequestCancellation(now time.Time) (uuid.UUID, error) {
	if b.s.Status != StatusConfirmed {
		return uuid.Nil, invalidState("request cancellation", b.s.Status)
	}
	if err := b.CheckCancellationWindow(now); err != nil {
		return uuid.Nil, err
	}
	now = now.UTC()
	token := uuid.New()
	b.s.CancellationToken = &token
	b.s.CancellationRequestedAt = &now
	b.mark(now, ColCancellationToken, ColCancellationRequestedAt)
	return token, nil
}

func (b *Booking) setCancelledBy(actor Actor, now time.Time) {
	b.s.CancelledBy = &actor
	b.mark(now.UTC(), ColCancelledBy)
}

// clearInFlightArtifacts retires tokens and references so they cannot be replayed.
func (b *Booking) clearInFlightArtifacts(now time.Time) {
	b.s.CancellationToken = nil
	b.s.CancellationRequestedAt = nil
	b.s.PaymentReference = nil
	b.s.PaymentRequestedAt = nil
	b.mark(now.UTC(), ColCancellationToken, ColCancellationRequestedAt,
		ColPaymentReference, ColPaymentRequestedAt)
}

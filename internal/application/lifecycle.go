package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
	"github.com/mindsettler/service-booking/internal/metrics"
)

// ApproveParams is the admin decision applied by Approve.
type ApproveParams struct {
	SlotStart   time.Time
	SlotEnd     time.Time
	Amount      *decimal.Decimal
	ProviderID  *uuid.UUID
	CorporateID *uuid.UUID
}

// TransitionListener is told about every persisted status change.
type TransitionListener interface {
	BookingTransitioned(ctx context.Context, from bookingDomain.Status, bk *bookingDomain.Booking)
}

// LifecycleEngine applies guarded transitions to a booking and persists the changed
// columns with a version check. It never sends notifications.
type LifecycleEngine struct {
	repo     bookingDomain.Repository
	now      func() time.Time
	listener TransitionListener
}

// NewLifecycleEngine creates an engine. A nil clock means time.Now.
func NewLifecycleEngine(repo bookingDomain.Repository, now func() time.Time) *LifecycleEngine {
	if now == nil {
		now = time.Now
	}
	return &LifecycleEngine{repo: repo, now: now}
}

// SetListener registers the transition listener.
func (e *LifecycleEngine) SetListener(l TransitionListener) {
	e.listener = l
}

// Now returns the engine clock's current time.
func (e *LifecycleEngine) Now() time.Time {
	return e.now()
}

// Submit moves DRAFT to PENDING.
func (e *LifecycleEngine) Submit(ctx context.Context, bk *bookingDomain.Booking) error {
	return e.apply(ctx, bk, "submit booking", bk.Submit)
}

// Approve assigns the slot and amount. Offline sessions paid offline land on CONFIRMED.
func (e *LifecycleEngine) Approve(ctx context.Context, bk *bookingDomain.Booking, p ApproveParams) error {
	return e.apply(ctx, bk, "approve booking", func(now time.Time) error {
		return bk.Approve(bookingDomain.Approval{
			SlotStart:   p.SlotStart,
			SlotEnd:     p.SlotEnd,
			Amount:      p.Amount,
			ProviderID:  p.ProviderID,
			CorporateID: p.CorporateID,
		}, now)
	})
}

// Reject moves PENDING to REJECTED.
func (e *LifecycleEngine) Reject(ctx context.Context, bk *bookingDomain.Booking, reason, alternateSlots string) error {
	return e.apply(ctx, bk, "reject booking", func(now time.Time) error {
		return bk.Reject(reason, alternateSlots, now)
	})
}

// RejectDuplicate rejects a draft whose owner already holds an active booking.
func (e *LifecycleEngine) RejectDuplicate(ctx context.Context, bk *bookingDomain.Booking) error {
	return e.apply(ctx, bk, "reject duplicate booking", bk.RejectDuplicate)
}

// MoveToPaymentPending records the payment reference. It reports false when the
// booking was already PAYMENT_PENDING.
func (e *LifecycleEngine) MoveToPaymentPending(ctx context.Context, bk *bookingDomain.Booking, reference string) (bool, error) {
	var moved bool
	err := e.apply(ctx, bk, "move booking to payment pending", func(now time.Time) error {
		var err error
		moved, err = bk.MoveToPaymentPending(reference, now)
		return err
	})
	return moved, err
}

// ConfirmBooking moves the booking to CONFIRMED.
func (e *LifecycleEngine) ConfirmBooking(ctx context.Context, bk *bookingDomain.Booking) error {
	return e.apply(ctx, bk, "confirm booking", bk.Confirm)
}

// Cancel moves the booking to CANCELLED without actor rules.
func (e *LifecycleEngine) Cancel(ctx context.Context, bk *bookingDomain.Booking, reason string) error {
	return e.apply(ctx, bk, "cancel booking", func(now time.Time) error {
		return bk.Cancel(reason, now)
	})
}

// Complete marks a confirmed session as held.
func (e *LifecycleEngine) Complete(ctx context.Context, bk *bookingDomain.Booking) error {
	return e.apply(ctx, bk, "complete booking", bk.Complete)
}

// FailPayment moves PAYMENT_PENDING to PAYMENT_FAILED. It reports false when the
// failure was already recorded.
func (e *LifecycleEngine) FailPayment(ctx context.Context, bk *bookingDomain.Booking) (bool, error) {
	var failed bool
	err := e.apply(ctx, bk, "fail booking payment", func(now time.Time) error {
		var err error
		failed, err = bk.FailPayment(now)
		return err
	})
	return failed, err
}

// Touch persists a mutation that does not change status, such as a latch or token.
func (e *LifecycleEngine) Touch(ctx context.Context, bk *bookingDomain.Booking, op string, mutate func(now time.Time)) error {
	return e.apply(ctx, bk, op, func(now time.Time) error {
		mutate(now)
		return nil
	})
}

// apply runs mutate and persists its changes. On any failure the aggregate is reset
// to its state before the call.
func (e *LifecycleEngine) apply(ctx context.Context, bk *bookingDomain.Booking, op string, mutate func(now time.Time) error) error {
	before := bk.Snapshot()

	if err := mutate(e.now()); err != nil {
		bk.Restore(before)
		metrics.ObserveOperationError(op)
		return fmt.Errorf("%s: %w", op, err)
	}
	if !bk.HasChanges() {
		return nil
	}

	bk.IncrementVersion()
	if err := e.repo.Update(ctx, bk); err != nil {
		bk.Restore(before)
		metrics.ObserveOperationError(op)
		return fmt.Errorf("%s: %w", op, err)
	}
	bk.ClearChanges()

	if before.Status != bk.Status() {
		metrics.ObserveTransition(string(before.Status), string(bk.Status()))
		if e.listener != nil {
			e.listener.BookingTransitioned(ctx, before.Status, bk)
		}
	}
	return nil
}

package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
)

// PaymentCoordinator drives the APPROVED -> PAYMENT_PENDING -> CONFIRMED leg and the
// one-time confirmation email.
type PaymentCoordinator struct {
	engine *LifecycleEngine
	mailer *bookingMailer
	logger *zap.Logger
}

func newPaymentCoordinator(engine *LifecycleEngine, mailer *bookingMailer, logger *zap.Logger) *PaymentCoordinator {
	return &PaymentCoordinator{engine: engine, mailer: mailer, logger: logger}
}

// IsPaymentRequired is false only for offline sessions paid offline.
func (p *PaymentCoordinator) IsPaymentRequired(bk *bookingDomain.Booking) bool {
	return bk.IsPaymentRequired()
}

// InitiatePayment issues a payment reference and moves the booking to PAYMENT_PENDING.
// A booking already PAYMENT_PENDING returns its existing reference.
func (p *PaymentCoordinator) InitiatePayment(ctx context.Context, bk *bookingDomain.Booking) (string, decimal.Decimal, error) {
	if !bk.EmailVerified() {
		return "", decimal.Zero, bookingDomain.ErrEmailNotVerified
	}

	if bk.Status() == bookingDomain.StatusPaymentPending && bk.PaymentReference() != nil {
		return *bk.PaymentReference(), amountOf(bk), nil
	}

	if bk.Status() != bookingDomain.StatusApproved {
		return "", decimal.Zero, fmt.Errorf("%w: cannot initiate payment in status %s",
			bookingDomain.ErrInvalidState, bk.Status())
	}
	if !bk.IsPaymentRequired() {
		return "", decimal.Zero, bookingDomain.ErrPaymentNotRequired
	}
	if bk.Amount() == nil {
		return "", decimal.Zero, bookingDomain.ErrMissingAmount
	}

	reference := generatePaymentReference()
	if _, err := p.engine.MoveToPaymentPending(ctx, bk, reference); err != nil {
		return "", decimal.Zero, err
	}

	p.logger.Info("payment initiated",
		zap.String("booking_id", bk.ID().String()),
		zap.String("payment_reference", reference),
	)
	return reference, amountOf(bk), nil
}

// CompletePayment confirms the booking and sends the confirmation email once. It is a
// no-op on a booking that is already CONFIRMED.
func (p *PaymentCoordinator) CompletePayment(ctx context.Context, bk *bookingDomain.Booking) error {
	switch {
	case bk.Status() == bookingDomain.StatusConfirmed:
		return nil
	case bk.Status() == bookingDomain.StatusApproved && !bk.IsPaymentRequired():
	case bk.Status() != bookingDomain.StatusPaymentPending:
		return fmt.Errorf("%w: payment cannot be completed in status %s",
			bookingDomain.ErrInvalidState, bk.Status())
	}

	if err := p.engine.ConfirmBooking(ctx, bk); err != nil {
		return err
	}
	p.mailer.sendOnce(ctx, p.engine, bk, confirmationEmail)
	return nil
}

// FailPayment records a failed payment. Repeated failures are no-ops.
func (p *PaymentCoordinator) FailPayment(ctx context.Context, bk *bookingDomain.Booking) error {
	_, err := p.engine.FailPayment(ctx, bk)
	return err
}

// generatePaymentReference returns "PAY-" followed by 12 uppercase hex characters.
func generatePaymentReference() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PAY-" + strings.ToUpper(hex[:12])
}

func amountOf(bk *bookingDomain.Booking) decimal.Decimal {
	if a := bk.Amount(); a != nil {
		return *a
	}
	return decimal.Zero
}

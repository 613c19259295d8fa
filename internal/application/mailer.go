package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
	"github.com/mindsettler/service-booking/internal/domain/identity"
	notificationDomain "github.com/mindsettler/service-booking/internal/domain/notification"
	"github.com/mindsettler/service-booking/internal/notification"
)

// displayZone is the zone session times are written in for requesters.
var displayZone = time.FixedZone("IST", 5*60*60+30*60)

// bookingMailer builds booking emails and hands them to the notifier.
type bookingMailer struct {
	notifier    Notifier
	users       identity.Resolver
	frontendURL string
	logger      *zap.Logger
}

func newBookingMailer(notifier Notifier, users identity.Resolver, frontendURL string, logger *zap.Logger) *bookingMailer {
	return &bookingMailer{
		notifier:    notifier,
		users:       users,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
	}
}

// SendVerification emails the link that verifies the requester's address.
func (m *bookingMailer) SendVerification(ctx context.Context, bk *bookingDomain.Booking, token uuid.UUID) notification.Result {
	data := m.baseData(bk)
	data.VerificationURL = m.link("/verify-email", token)
	return m.send(ctx, bk, notificationDomain.TemplateVerification, data)
}

// SendCancellationRequest emails the link that confirms a cancellation.
func (m *bookingMailer) SendCancellationRequest(ctx context.Context, bk *bookingDomain.Booking, token uuid.UUID) notification.Result {
	data := m.baseData(bk)
	data.CancellationURL = m.link("/verify-cancellation", token)
	return m.send(ctx, bk, notificationDomain.TemplateCancellationRequest, data)
}

// SendApproved emails the approved slot and amount with the next step for payment.
func (m *bookingMailer) SendApproved(ctx context.Context, bk *bookingDomain.Booking) notification.Result {
	return m.send(ctx, bk, notificationDomain.TemplateApproved, m.baseData(bk))
}

// SendRejected emails the rejection reason and any alternate slots offered.
func (m *bookingMailer) SendRejected(ctx context.Context, bk *bookingDomain.Booking) notification.Result {
	return m.send(ctx, bk, notificationDomain.TemplateRejected, m.baseData(bk))
}

// SendConfirmed emails the confirmed session with its calendar link and the
// cancellation cutoff.
func (m *bookingMailer) SendConfirmed(ctx context.Context, bk *bookingDomain.Booking) notification.Result {
	return m.send(ctx, bk, notificationDomain.TemplateConfirmed, m.baseData(bk))
}

func (m *bookingMailer) send(ctx context.Context, bk *bookingDomain.Booking, tmpl notificationDomain.Template, data notification.TemplateData) notification.Result {
	user, err := m.users.FindByID(ctx, bk.OwnerID())
	if err != nil {
		m.logger.Error("failed to resolve booking recipient",
			zap.String("booking_id", bk.ID().String()),
			zap.String("template", string(tmpl)),
			zap.Error(err),
		)
		return notification.Result{Error: fmt.Sprintf("resolve recipient: %v", err)}
	}

	return m.notifier.Send(ctx, notification.Message{
		BookingID: bk.ID(),
		Template:  tmpl,
		To:        user.Email(),
		Data:      data,
	})
}

func (m *bookingMailer) link(path string, token uuid.UUID) string {
	q := url.Values{}
	q.Set("token", token.String())
	return m.frontendURL + path + "?" + q.Encode()
}

func (m *bookingMailer) baseData(bk *bookingDomain.Booking) notification.TemplateData {
	data := notification.TemplateData{
		AcknowledgementID:       bk.AcknowledgementID(),
		Mode:                    string(bk.Mode()),
		RejectionReason:         bk.RejectionReason(),
		AlternateSlots:          bk.AlternateSlots(),
		CalendarURL:             bk.CalendarLink(),
		CancellationCutoffHours: int(bookingDomain.CancellationCutoff.Hours()),
	}
	if start, end := bk.ApprovedSlotStart(), bk.ApprovedSlotEnd(); start != nil && end != nil {
		s, e := start.In(displayZone), end.In(displayZone)
		data.SlotDate = s.Format("02 Jan 2006")
		data.SlotTime = s.Format("03:04 PM") + " - " + e.Format("03:04 PM") + " IST"
	}
	if amount := bk.Amount(); amount != nil {
		data.Amount = amount.StringFixed(2)
	}
	return data
}

// oneTimeEmail pairs an email with the latch that records it was attempted.
type oneTimeEmail struct {
	op       string
	notified func(*bookingDomain.Booking) bool
	mark     func(*bookingDomain.Booking, time.Time) bool
	send     func(*bookingMailer, context.Context, *bookingDomain.Booking) notification.Result
}

var (
	approvalEmail = oneTimeEmail{
		op:       "mark approval notified",
		notified: (*bookingDomain.Booking).ApprovalNotified,
		mark:     (*bookingDomain.Booking).MarkApprovalNotified,
		send:     (*bookingMailer).SendApproved,
	}
	rejectionEmail = oneTimeEmail{
		op:       "mark rejection notified",
		notified: (*bookingDomain.Booking).RejectionNotified,
		mark:     (*bookingDomain.Booking).MarkRejectionNotified,
		send:     (*bookingMailer).SendRejected,
	}
	confirmationEmail = oneTimeEmail{
		op:       "mark confirmation notified",
		notified: (*bookingDomain.Booking).ConfirmationNotified,
		mark:     (*bookingDomain.Booking).MarkConfirmationNotified,
		send:     (*bookingMailer).SendConfirmed,
	}
)

// sendOnce sends email unless its latch is set, then sets and persists the latch
// whatever the delivery outcome. A latch write that loses a version race is retried
// once on the current row. A failed latch write is logged, not returned: the
// transition it follows is already committed.
func (m *bookingMailer) sendOnce(ctx context.Context, engine *LifecycleEngine, bk *bookingDomain.Booking, email oneTimeEmail) {
	if email.notified(bk) {
		return
	}
	email.send(m, ctx, bk)

	err := engine.Touch(ctx, bk, email.op, func(now time.Time) {
		email.mark(bk, now)
	})
	if errors.Is(err, bookingDomain.ErrConflict) {
		err = retryLatch(ctx, engine, bk, email)
	}
	if err != nil {
		m.logger.Error("failed to persist notification flag",
			zap.String("booking_id", bk.ID().String()),
			zap.String("operation", email.op),
			zap.Error(err),
		)
	}
}

// retryLatch re-reads bk and sets the latch on the stored row unless a concurrent
// writer already set it. bk is left holding the stored state.
func retryLatch(ctx context.Context, engine *LifecycleEngine, bk *bookingDomain.Booking, email oneTimeEmail) error {
	current, err := engine.repo.FindByID(ctx, bk.ID())
	if err != nil {
		return fmt.Errorf("%s: reload: %w", email.op, err)
	}
	if !email.notified(current) {
		err := engine.Touch(ctx, current, email.op, func(now time.Time) {
			email.mark(current, now)
		})
		if err != nil {
			return err
		}
	}
	bk.Restore(current.Snapshot())
	return nil
}

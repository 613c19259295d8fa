package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	notificationDomain "github.com/mindsettler/service-booking/internal/domain/notification"
	"github.com/mindsettler/service-booking/internal/metrics"
)

// TemplateData is the union of fields the email templates read.
type TemplateData struct {
	AcknowledgementID       string
	VerificationURL         string
	CancellationURL         string
	SlotDate                string
	SlotTime                string
	Amount                  string
	Mode                    string
	RejectionReason         string
	AlternateSlots          string
	CalendarURL             string
	CancellationCutoffHours int
}

// Message is one email to dispatch for a booking.
type Message struct {
	BookingID uuid.UUID
	Template  notificationDomain.Template
	To        string
	Data      TemplateData
}

// Result reports the outcome of one attempt. Attempts never fail the caller.
type Result struct {
	Delivered bool
	Error     string
}

// Dispatcher renders, sends and records transactional emails.
type Dispatcher struct {
	renderer *Renderer
	sender   Sender
	records  notificationDomain.RecordRepository
	logger   *zap.Logger
	timeout  time.Duration
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(renderer *Renderer, sender Sender, records notificationDomain.RecordRepository, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		renderer: renderer,
		sender:   sender,
		records:  records,
		logger:   logger,
		timeout:  15 * time.Second,
	}
}

// Send attempts delivery and writes the attempt to the notification log.
func (d *Dispatcher) Send(ctx context.Context, msg Message) Result {
	result := d.deliver(ctx, msg)
	metrics.ObserveNotification(string(msg.Template), result.Delivered)

	fields := []zap.Field{
		zap.String("booking_id", msg.BookingID.String()),
		zap.String("template", string(msg.Template)),
		zap.String("to", msg.To),
	}
	if result.Delivered {
		d.logger.Info("notification sent", fields...)
	} else {
		d.logger.Warn("notification failed", append(fields, zap.String("error", result.Error))...)
	}

	record, err := notificationDomain.NewRecord(msg.BookingID, msg.Template, msg.To, result.Delivered, result.Error, time.Now())
	if err != nil {
		d.logger.Error("failed to build notification record", append(fields, zap.Error(err))...)
		return result
	}
	if err := d.records.Save(context.WithoutCancel(ctx), record); err != nil {
		d.logger.Error("failed to save notification record", append(fields, zap.Error(err))...)
	}
	return result
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) Result {
	subject, body, err := d.renderer.Render(msg.Template, msg.Data)
	if err != nil {
		return Result{Error: err.Error()}
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()
	if err := d.sender.Send(sendCtx, msg.To, subject, body); err != nil {
		return Result{Error: err.Error()}
	}
	return Result{Delivered: true}
}

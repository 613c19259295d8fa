package events

import (
	"context"
	"errors"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/mindsettler/service-booking/internal/application"
	"github.com/mindsettler/service-booking/internal/contracts"
	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
	"github.com/mindsettler/service-booking/internal/metrics"
	"github.com/mindsettler/service-booking/internal/platform/kafka"
)

// PaymentHandler is the part of the booking service driven by payment events.
type PaymentHandler interface {
	CompletePayment(ctx context.Context, reference string) (*application.ActionResult, error)
	FailPaymentByReference(ctx context.Context, reference string) error
}

// PaymentEventConsumer listens to payment events and confirms or fails bookings.
type PaymentEventConsumer struct {
	consumer *kafka.Consumer
	handler  PaymentHandler
	logger   *zap.Logger
}

// NewPaymentEventConsumer creates a new PaymentEventConsumer.
func NewPaymentEventConsumer(
	brokers []string,
	groupID string,
	handler PaymentHandler,
	logger *zap.Logger,
) *PaymentEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, contracts.TopicPaymentEvents, logger)
	return &PaymentEventConsumer{
		consumer: consumer,
		handler:  handler,
		logger:   logger,
	}
}

// Start begins consuming payment events. This blocks until the context is cancelled.
func (c *PaymentEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.HandleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PaymentEventConsumer) Close() error {
	return c.consumer.Close()
}

// HandleMessage dispatches one payment event. Malformed messages and events for
// bookings that can no longer take them are dropped.
func (c *PaymentEventConsumer) HandleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from payment topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		metrics.ObservePaymentEvent("unknown", "malformed")
		return nil
	}

	switch cloudEvent.Type {
	case contracts.PaymentCompleted:
		return c.handlePaymentCompleted(ctx, cloudEvent)
	case contracts.PaymentFailed:
		return c.handlePaymentFailed(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled payment event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *PaymentEventConsumer) handlePaymentCompleted(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt contracts.PaymentCompletedEvent
	if err := cloudEvent.ParseData(&evt); err != nil || evt.PaymentReference == "" {
		c.logger.Error("failed to parse PaymentCompletedEvent data", zap.Error(err))
		metrics.ObservePaymentEvent(cloudEvent.Type, "malformed")
		return nil
	}

	c.logger.Info("processing payment completed event",
		zap.String("payment_reference", evt.PaymentReference),
		zap.String("amount", evt.Amount.StringFixed(2)),
	)

	_, err := c.handler.CompletePayment(ctx, evt.PaymentReference)
	return c.finish(cloudEvent.Type, evt.PaymentReference, err)
}

func (c *PaymentEventConsumer) handlePaymentFailed(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt contracts.PaymentFailedEvent
	if err := cloudEvent.ParseData(&evt); err != nil || evt.PaymentReference == "" {
		c.logger.Error("failed to parse PaymentFailedEvent data", zap.Error(err))
		metrics.ObservePaymentEvent(cloudEvent.Type, "malformed")
		return nil
	}

	c.logger.Info("processing payment failed event",
		zap.String("payment_reference", evt.PaymentReference),
		zap.String("reason", evt.Reason),
	)

	err := c.handler.FailPaymentByReference(ctx, evt.PaymentReference)
	return c.finish(cloudEvent.Type, evt.PaymentReference, err)
}

func (c *PaymentEventConsumer) finish(eventType, reference string, err error) error {
	fields := []zap.Field{
		zap.String("event_type", eventType),
		zap.String("payment_reference", reference),
	}

	switch {
	case err == nil:
		metrics.ObservePaymentEvent(eventType, "applied")
		c.logger.Info("payment event applied", fields...)
		return nil
	case errors.Is(err, bookingDomain.ErrNotFound),
		errors.Is(err, bookingDomain.ErrInvalidState),
		errors.Is(err, bookingDomain.ErrInvalidTransition):
		metrics.ObservePaymentEvent(eventType, "skipped")
		c.logger.Warn("payment event skipped", append(fields, zap.Error(err))...)
		return nil
	default:
		metrics.ObservePaymentEvent(eventType, "error")
		c.logger.Error("failed to apply payment event", append(fields, zap.Error(err))...)
		return err
	}
}

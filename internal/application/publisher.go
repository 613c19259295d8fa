package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mindsettler/service-booking/internal/contracts"
	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
	"github.com/mindsettler/service-booking/internal/metrics"
	"github.com/mindsettler/service-booking/internal/platform/kafka"
)

var lifecycleEventTypes = map[bookingDomain.Status]string{
	bookingDomain.StatusPending:        contracts.BookingSubmitted,
	bookingDomain.StatusApproved:       contracts.BookingApproved,
	bookingDomain.StatusRejected:       contracts.BookingRejected,
	bookingDomain.StatusPaymentPending: contracts.BookingPaymentPending,
	bookingDomain.StatusConfirmed:      contracts.BookingConfirmed,
	bookingDomain.StatusPaymentFailed:  contracts.BookingPaymentFailed,
	bookingDomain.StatusCompleted:      contracts.BookingCompleted,
	bookingDomain.StatusCancelled:      contracts.BookingCancelled,
}

// eventPublisher turns booking changes into CloudEvents on the booking topic.
// Publish failures are logged and never fail the operation.
type eventPublisher struct {
	producer EventPublisher
	logger   *zap.Logger
}

func newEventPublisher(producer EventPublisher, logger *zap.Logger) *eventPublisher {
	return &eventPublisher{producer: producer, logger: logger}
}

// BookingTransitioned implements TransitionListener.
func (p *eventPublisher) BookingTransitioned(ctx context.Context, from bookingDomain.Status, bk *bookingDomain.Booking) {
	eventType, ok := lifecycleEventTypes[bk.Status()]
	if !ok {
		return
	}
	p.publishEvent(ctx, contracts.TopicBookingEvents, eventType, bk.ID().String(), lifecycleEvent(from, bk))
}

func (p *eventPublisher) publishDrafted(ctx context.Context, bk *bookingDomain.Booking) {
	p.publishEvent(ctx, contracts.TopicBookingEvents, contracts.BookingDrafted, bk.ID().String(), lifecycleEvent("", bk))
}

func (p *eventPublisher) publishOverlap(ctx context.Context, bk *bookingDomain.Booking, overlapping []*bookingDomain.Booking) {
	ids := make([]uuid.UUID, len(overlapping))
	for i, o := range overlapping {
		ids[i] = o.ID()
	}
	evt := contracts.BookingOverlapEvent{
		BookingID:             bk.ID(),
		ProviderID:            *bk.ProviderID(),
		OverlappingBookingIDs: ids,
		OccurredAt:            time.Now().UTC(),
	}
	p.publishEvent(ctx, contracts.TopicBookingEvents, contracts.BookingOverlapDetected, bk.ID().String(), evt)
}

func (p *eventPublisher) publishEvent(ctx context.Context, topic, eventType, key string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(contracts.EventSource, eventType, data)
	if err != nil {
		metrics.ObservePublishError()
		p.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	cloudEvent.Subject = key

	if err := p.producer.PublishEvent(ctx, topic, cloudEvent); err != nil {
		metrics.ObservePublishError()
		p.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

func lifecycleEvent(from bookingDomain.Status, bk *bookingDomain.Booking) contracts.BookingLifecycleEvent {
	evt := contracts.BookingLifecycleEvent{
		BookingID:         bk.ID(),
		AcknowledgementID: bk.AcknowledgementID(),
		OwnerID:           bk.OwnerID(),
		FromStatus:        string(from),
		ToStatus:          string(bk.Status()),
		Mode:              string(bk.Mode()),
		ProviderID:        bk.ProviderID(),
		SlotStart:         bk.ApprovedSlotStart(),
		SlotEnd:           bk.ApprovedSlotEnd(),
		Amount:            bk.Amount(),
		OccurredAt:        time.Now().UTC(),
	}
	if ref := bk.PaymentReference(); ref != nil {
		evt.PaymentReference = *ref
	}
	switch bk.Status() {
	case bookingDomain.StatusRejected:
		evt.Reason = bk.RejectionReason()
	case bookingDomain.StatusCancelled:
		evt.Reason = bk.CancellationReason()
		if by := bk.CancelledBy(); by != nil {
			evt.Actor = string(*by)
		}
	}
	return evt
}

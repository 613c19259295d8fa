package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mindsettler/service-booking/internal/notification"
	"github.com/mindsettler/service-booking/internal/platform/kafka"
)

// ErrThrottled is returned when an email was sent too recently to send another.
var ErrThrottled = errors.New("please wait before requesting another verification email")

// Notifier dispatches one transactional email. It never fails the caller.
type Notifier interface {
	Send(ctx context.Context, msg notification.Message) notification.Result
}

// EventPublisher publishes CloudEvents to a topic.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, ce kafka.CloudEvent) error
}

// Limiter claims a key for a window across replicas. Release gives back a claim
// whose action did not happen.
type Limiter interface {
	Allow(ctx context.Context, key string, window time.Duration) bool
	Release(ctx context.Context, key string)
}

// AssignmentChecker vets the provider and corporate an approval references.
type AssignmentChecker interface {
	CheckAssignment(ctx context.Context, providerID, corporateID *uuid.UUID) error
}

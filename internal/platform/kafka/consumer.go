package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageHandler processes one message. A returned error makes the consumer retry
// the same message until it succeeds or the context ends.
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer reads a single topic as part of a consumer group.
type Consumer struct {
	reader      messageReader
	logger      *zap.Logger
	retryWait   time.Duration
	maxRetryGap time.Duration
}

// NewConsumer creates a group consumer for topic.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:        brokers,
			GroupID:        groupID,
			Topic:          topic,
			MinBytes:       1,
			MaxBytes:       10e6,
			MaxWait:        500 * time.Millisecond,
			StartOffset:    kafkago.FirstOffset,
			CommitInterval: 0,
		}),
		logger:      logger.With(zap.String("topic", topic), zap.String("group_id", groupID)),
		retryWait:   500 * time.Millisecond,
		maxRetryGap: 30 * time.Second,
	}
}

// Consume blocks, dispatching messages to handler until ctx is cancelled. A message
// is committed only after handler succeeds on it, and no later message is fetched
// before that.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		if err := c.handleWithRetry(ctx, handler, msg); err != nil {
			return ctx.Err()
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to commit offset", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// handleWithRetry runs handler on msg with exponential backoff. It only gives up
// when ctx is done.
func (c *Consumer) handleWithRetry(ctx context.Context, handler MessageHandler, msg kafkago.Message) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryWait
	policy.MaxInterval = c.maxRetryGap
	policy.MaxElapsedTime = 0
	policy.Reset()

	attempt := 0
	return backoff.RetryNotify(
		func() error {
			attempt++
			return handler(ctx, msg)
		},
		backoff.WithContext(policy, ctx),
		func(err error, wait time.Duration) {
			c.logger.Error("message handler failed, retrying",
				zap.Int64("offset", msg.Offset),
				zap.Int("partition", msg.Partition),
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", wait),
				zap.Error(err),
			)
		},
	)
}

// Close closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

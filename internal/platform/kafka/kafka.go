package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer publishes CloudEvents to Kafka.
type Producer struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

// NewProducer creates a producer for the given brokers. The topic is chosen per message.
func NewProducer(brokers []string, logger *zap.Logger) *Producer {
	return &Producer{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
		},
		logger: logger,
	}
}

// PublishEvent writes one event, keyed by its subject so events for the same
// entity stay on one partition.
func (p *Producer) PublishEvent(ctx context.Context, topic string, ce CloudEvent) error {
	value, err := json.Marshal(ce)
	if err != nil {
		return errors.Wrap(err, "marshal cloud event")
	}
	key := ce.Subject
	if key == "" {
		key = ce.ID
	}

	if err := p.writer.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}); err != nil {
		return errors.Wrapf(err, "publish %s to %s", ce.Type, topic)
	}

	p.logger.Debug("event published",
		zap.String("topic", topic),
		zap.String("type", ce.Type),
		zap.String("id", ce.ID),
	)
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// MessageHandler processes one message. Returning an error makes Consume retry it.
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Retryable marks a handler error as transient. Consume keeps retrying such a
// message until it succeeds or ctx is cancelled and never commits it on failure.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable reports whether err was marked with Retryable.
func IsRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer reads one topic as part of a consumer group.
type Consumer struct {
	reader  messageReader
	backoff func(attempt int) time.Duration
	logger  *zap.Logger
}

// NewConsumer creates a group consumer for topic.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:     brokers,
			GroupID:     groupID,
			Topic:       topic,
			MinBytes:    1,
			MaxBytes:    10e6,
			StartOffset: kafkago.FirstOffset,
		}),
		backoff: defaultBackoff,
		logger:  logger,
	}
}

const (
	maxHandlerAttempts = 3
	maxBackoff         = 30 * time.Second
)

func defaultBackoff(attempt int) time.Duration {
	d := time.Duration(attempt) * time.Second
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// Consume fetches messages until ctx is cancelled. A message whose handler
// fails with a Retryable error is retried with capped backoff and its offset
// stays uncommitted until the handler succeeds. Any other failure is retried
// up to maxHandlerAttempts times and then committed so a poison message
// cannot stall the partition.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "fetch message")
		}

		for attempt := 1; ; attempt++ {
			err = handler(ctx, msg)
			if err == nil {
				break
			}
			retryable := IsRetryable(err)
			c.logger.Error("message handler failed",
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Int("attempt", attempt),
				zap.Bool("retryable", retryable),
				zap.Error(err),
			)
			if !retryable && attempt >= maxHandlerAttempts {
				c.logger.Warn("dropping message after repeated failures",
					zap.String("topic", msg.Topic),
					zap.Int64("offset", msg.Offset),
				)
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return errors.Wrap(err, "commit offset")
		}
	}
}

// Close closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

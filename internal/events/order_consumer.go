package events

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	contracts "github.com/forkline-eats/service-promo/internal/contracts/events"
	"github.com/forkline-eats/service-promo/internal/domain/promo"
	"github.com/forkline-eats/service-promo/internal/platform/apperror"
	"github.com/forkline-eats/service-promo/internal/platform/kafka"
)

// CommittedOrderApplier records a redemption for an order committed
// elsewhere. Satisfied by *application.DiscountEngine.
type CommittedOrderApplier interface {
	ApplyCommittedOrder(ctx context.Context, promoCodeID, customerID, orderID uuid.UUID, discount decimal.Decimal) error
}

// OrderEventConsumer listens to order events and records the promo
// redemptions of orders the order workflow has committed.
type OrderEventConsumer struct {
	consumer *kafka.Consumer
	applier  CommittedOrderApplier
	logger   *zap.Logger
}

// NewOrderEventConsumer creates a new consumer for order events.
func NewOrderEventConsumer(
	brokers []string,
	groupID string,
	applier CommittedOrderApplier,
	logger *zap.Logger,
) *OrderEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, contracts.TopicOrderEvents, logger)
	return &OrderEventConsumer{
		consumer: consumer,
		applier:  applier,
		logger:   logger,
	}
}

// Start begins consuming order events. It blocks until the context is cancelled.
func (c *OrderEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

func (c *OrderEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		// redelivery cannot fix a malformed envelope
		c.logger.Error("failed to parse cloud event from order topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil
	}

	c.logger.Info("received order event",
		zap.String("type", cloudEvent.Type),
		zap.String("id", cloudEvent.ID),
	)

	switch {
	case strings.EqualFold(cloudEvent.Type, contracts.OrderPromoCommitted):
		return c.handlePromoCommitted(ctx, cloudEvent)

	default:
		c.logger.Debug("ignoring unhandled order event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

// handlePromoCommitted applies an OrderPromoCommittedEvent. Redeliveries and
// rule rejections are acknowledged. Storage failures are retried until they
// succeed and the offset is not committed meanwhile.
func (c *OrderEventConsumer) handlePromoCommitted(ctx context.Context, ce kafka.CloudEvent) error {
	var event contracts.OrderPromoCommittedEvent
	if err := ce.ParseData(&event); err != nil {
		c.logger.Error("failed to parse OrderPromoCommittedEvent data", zap.Error(err))
		return nil
	}

	customerID := uuid.Nil
	if event.CustomerID != nil {
		customerID = *event.CustomerID
	}

	fields := []zap.Field{
		zap.String("order_id", event.OrderID.String()),
		zap.String("promo_code_id", event.PromoCodeID.String()),
	}

	err := c.applier.ApplyCommittedOrder(ctx, event.PromoCodeID, customerID, event.OrderID, event.DiscountAmount)
	var ruleErr *promo.RuleError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, promo.ErrAlreadyRecorded):
		c.logger.Info("redemption already recorded", fields...)
		return nil
	case errors.As(err, &ruleErr):
		c.logger.Warn("committed order rejected by promo rules",
			append(fields, zap.String("reason", string(ruleErr.Reason)))...)
		return nil
	case errors.Is(err, apperror.ErrNotFound):
		c.logger.Warn("committed order references unknown promo code", fields...)
		return nil
	default:
		return kafka.Retryable(err)
	}
}

// Close closes the underlying Kafka consumer.
func (c *OrderEventConsumer) Close() error {
	return c.consumer.Close()
}

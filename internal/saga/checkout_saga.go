package saga

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/forkline-eats/service-promo/internal/adapter"
	"github.com/forkline-eats/service-promo/internal/contracts/events"
	"github.com/forkline-eats/service-promo/internal/domain/promo"
	"github.com/forkline-eats/service-promo/internal/platform/kafka"
)

// Redeemer commits a set of redemptions atomically.
type Redeemer interface {
	ApplyAll(ctx context.Context, redemptions []promo.Redemption) error
}

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, ce kafka.CloudEvent) error
}

// CheckoutOrder is the priced, discounted order the checkout saga commits.
type CheckoutOrder struct {
	OrderID     uuid.UUID
	CustomerID  uuid.UUID
	Amount      decimal.Decimal
	Currency    string
	Redemptions []promo.Redemption
}

// CheckoutSagaService authorizes payment and commits promo redemptions for a checkout.
type CheckoutSagaService struct {
	payments  adapter.PaymentGateway
	redeemer  Redeemer
	publisher EventPublisher
	logger    *zap.Logger
}

// NewCheckoutSagaService creates a new CheckoutSagaService.
func NewCheckoutSagaService(
	payments adapter.PaymentGateway,
	redeemer Redeemer,
	publisher EventPublisher,
	logger *zap.Logger,
) *CheckoutSagaService {
	return &CheckoutSagaService{
		payments:  payments,
		redeemer:  redeemer,
		publisher: publisher,
		logger:    logger,
	}
}

// Run authorizes the payment, then records every redemption in one
// transaction. A failed commit cancels the authorization. Events are
// published after the saga and their failure does not undo the checkout.
func (s *CheckoutSagaService) Run(ctx context.Context, order CheckoutOrder) (string, error) {
	var authorizationID string

	saga := NewSaga("checkout", s.logger)

	saga.AddStep(SagaStep{
		Name: "authorize_payment",
		Execute: func(ctx context.Context) error {
			var err error
			authorizationID, err = s.payments.Authorize(ctx, order.OrderID, order.Amount, order.Currency)
			return err
		},
		Compensate: func(ctx context.Context) error {
			if authorizationID == "" {
				return nil
			}
			return s.payments.Cancel(ctx, authorizationID)
		},
	})

	saga.AddStep(SagaStep{
		Name: "commit_redemptions",
		Execute: func(ctx context.Context) error {
			if len(order.Redemptions) == 0 {
				return nil
			}
			return s.redeemer.ApplyAll(ctx, order.Redemptions)
		},
	})

	if err := saga.Execute(ctx); err != nil {
		s.publishFailed(ctx, order, err)
		return "", err
	}

	for _, r := range order.Redemptions {
		s.publishRedeemed(ctx, r)
	}
	return authorizationID, nil
}

func (s *CheckoutSagaService) publishRedeemed(ctx context.Context, r promo.Redemption) {
	event := events.PromoRedeemedEvent{
		PromoCodeID:    r.PromoCode.ID(),
		RestaurantID:   r.PromoCode.RestaurantID(),
		Code:           r.PromoCode.Code(),
		OrderID:        r.OrderID,
		CustomerID:     events.OptionalID(r.CustomerID),
		DiscountAmount: r.Discount,
		OccurredAt:     time.Now().UTC(),
	}
	s.publish(ctx, events.PromoRedeemed, r.PromoCode.ID().String(), event)
}

func (s *CheckoutSagaService) publishFailed(ctx context.Context, order CheckoutOrder, cause error) {
	event := events.CheckoutFailedEvent{
		OrderID:    order.OrderID,
		CustomerID: events.OptionalID(order.CustomerID),
		Reason:     cause.Error(),
		OccurredAt: time.Now().UTC(),
	}
	s.publish(ctx, events.CheckoutFailed, order.OrderID.String(), event)
}

func (s *CheckoutSagaService) publish(ctx context.Context, eventType, subject string, data any) {
	ce, err := kafka.NewCloudEvent(events.Source, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event", zap.String("type", eventType), zap.Error(err))
		return
	}
	ce.Subject = subject

	if err := s.publisher.PublishEvent(context.WithoutCancel(ctx), events.TopicPromoEvents, ce); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("type", eventType),
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}

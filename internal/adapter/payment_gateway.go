package adapter

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentGateway is the anti-corruption layer in front of the payment
// provider. Checkout only authorizes; capture happens when the order is fulfilled.
type PaymentGateway interface {
	// Authorize reserves amount for orderID and returns the authorization id.
	Authorize(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal, currency string) (string, error)

	// Cancel releases an authorization that was never captured.
	Cancel(ctx context.Context, authorizationID string) error
}

// NewPaymentGateway returns the gateway for a configured provider.
func NewPaymentGateway(provider string, logger *zap.Logger) (PaymentGateway, error) {
	switch provider {
	case "mock":
		return NewMockPaymentGateway(logger), nil
	default:
		return nil, errors.Errorf("unsupported payment provider %q", provider)
	}
}

// MockPaymentGateway simulates the provider for development and tests.
type MockPaymentGateway struct {
	logger *zap.Logger
}

// NewMockPaymentGateway creates a new mock gateway.
func NewMockPaymentGateway(logger *zap.Logger) *MockPaymentGateway {
	return &MockPaymentGateway{logger: logger}
}

// Authorize returns a mock authorization id. Negative amounts are rejected.
func (m *MockPaymentGateway) Authorize(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal, currency string) (string, error) {
	if amount.IsNegative() {
		return "", errors.Errorf("cannot authorize negative amount %s", amount)
	}
	authorizationID := fmt.Sprintf("auth_mock_%s", uuid.New().String()[:8])

	m.logger.Info("[MOCK PAYMENT] authorization created",
		zap.String("authorization_id", authorizationID),
		zap.String("order_id", orderID.String()),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("currency", currency),
	)
	return authorizationID, nil
}

// Cancel logs the cancellation.
func (m *MockPaymentGateway) Cancel(ctx context.Context, authorizationID string) error {
	m.logger.Info("[MOCK PAYMENT] authorization cancelled",
		zap.String("authorization_id", authorizationID),
	)
	return nil
}

// Package events defines the topics, CloudEvent types and payloads exchanged
// with the order workflow and other consumers of promo redemptions.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Source is the CloudEvent source of everything this service publishes.
const Source = "service-promo"

// Topics.
const (
	TopicOrderEvents = "order.events"
	TopicPromoEvents = "promo.events"
)

// Event types.
const (
	OrderPromoCommitted = "order.promo_committed"
	PromoRedeemed       = "promo.redeemed"
	CheckoutFailed      = "checkout.failed"
)

// OrderPromoCommittedEvent is published by the order workflow once an order
// carrying a promo code has been committed. CustomerID is nil for guests.
type OrderPromoCommittedEvent struct {
	OrderID        uuid.UUID       `json:"order_id"`
	PromoCodeID    uuid.UUID       `json:"promo_code_id"`
	CustomerID     *uuid.UUID      `json:"customer_id,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// PromoRedeemedEvent reports one recorded redemption.
type PromoRedeemedEvent struct {
	PromoCodeID    uuid.UUID       `json:"promo_code_id"`
	RestaurantID   uuid.UUID       `json:"restaurant_id"`
	Code           string          `json:"code"`
	OrderID        uuid.UUID       `json:"order_id"`
	CustomerID     *uuid.UUID      `json:"customer_id,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// CheckoutFailedEvent reports a checkout that was rolled back.
type CheckoutFailedEvent struct {
	OrderID    uuid.UUID  `json:"order_id"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
	Reason     string     `json:"reason"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// OptionalID maps uuid.Nil to nil.
func OptionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

package promo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrAlreadyRecorded is returned by UsageLedger.Record when the order already
// has a usage record for the same promo code.
var ErrAlreadyRecorded = errors.New("promo usage already recorded for order")

// PromoCodeRepository defines persistence operations for promo codes.
type PromoCodeRepository interface {
	Save(ctx context.Context, p *PromoCode) error
	FindByID(ctx context.Context, id uuid.UUID) (*PromoCode, error)
	// FindByCodeAndRestaurant returns an apperror not-found error when no code matches.
	FindByCodeAndRestaurant(ctx context.Context, code string, restaurantID uuid.UUID) (*PromoCode, error)
	FindActiveByRestaurant(ctx context.Context, restaurantID uuid.UUID, now time.Time) ([]*PromoCode, error)
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]*PromoCode, error)
	// IncrementUsageAtomic adds one to used_count in a single conditional
	// update. It returns false when the total usage limit is already reached.
	IncrementUsageAtomic(ctx context.Context, promoCodeID uuid.UUID) (bool, error)
}

// UsageLedger is the append-only record of redemptions.
type UsageLedger interface {
	CountByCustomerAndCode(ctx context.Context, customerID, promoCodeID uuid.UUID) (int, error)
	Record(ctx context.Context, usage *UsageRecord) error
	ListByPromoCode(ctx context.Context, promoCodeID uuid.UUID, page, limit int) ([]*UsageRecord, int64, error)
}

// Transactor runs fn inside one storage transaction carried by the context.
// A nested call joins the enclosing transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UsageRecord tracks one committed redemption. CustomerID is uuid.Nil for guests.
type UsageRecord struct {
	ID             uuid.UUID
	PromoCodeID    uuid.UUID
	CustomerID     uuid.UUID
	OrderID        uuid.UUID
	DiscountAmount decimal.Decimal
	UsedAt         time.Time
}

// NewUsageRecord creates a usage record stamped with the current time.
func NewUsageRecord(promoCodeID, customerID, orderID uuid.UUID, discount decimal.Decimal) *UsageRecord {
	return &UsageRecord{
		ID:             uuid.New(),
		PromoCodeID:    promoCodeID,
		CustomerID:     customerID,
		OrderID:        orderID,
		DiscountAmount: discount,
		UsedAt:         time.Now().UTC(),
	}
}

// Redemption is one promo code applied to one order at commit time.
type Redemption struct {
	PromoCode  *PromoCode
	CustomerID uuid.UUID
	OrderID    uuid.UUID
	Discount   decimal.Decimal
}

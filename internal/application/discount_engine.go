package application

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/forkline-eats/service-promo/internal/domain/promo"
	"github.com/forkline-eats/service-promo/internal/platform/apperror"
)

// DiscountEngine decides whether a promo code can be used and what it is worth,
// and records redemptions when an order is committed.
type DiscountEngine struct {
	promos promo.PromoCodeRepository
	ledger promo.UsageLedger
	tx     promo.Transactor
	logger *zap.Logger
}

// NewDiscountEngine creates a new DiscountEngine.
func NewDiscountEngine(promos promo.PromoCodeRepository, ledger promo.UsageLedger, tx promo.Transactor, logger *zap.Logger) *DiscountEngine {
	return &DiscountEngine{promos: promos, ledger: ledger, tx: tx, logger: logger}
}

// CheckEligibility looks the code up within the restaurant and applies the
// checks in order: not found, inactive, out of window, global limit,
// per-customer limit. A guest (uuid.Nil) skips the per-customer check.
// It never writes.
func (e *DiscountEngine) CheckEligibility(ctx context.Context, code string, restaurantID, customerID uuid.UUID, now time.Time) (*promo.PromoCode, error) {
	p, err := e.promos.FindByCodeAndRestaurant(ctx, code, restaurantID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, promo.ErrNotFound
		}
		return nil, errors.Wrap(err, "find promo code")
	}

	if err := p.CheckUsable(now); err != nil {
		return nil, err
	}

	if customerID != uuid.Nil && p.LimitsCustomers() {
		uses, err := e.ledger.CountByCustomerAndCode(ctx, customerID, p.ID())
		if err != nil {
			return nil, errors.Wrap(err, "count customer usages")
		}
		if err := p.CheckCustomerUsage(uses); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ComputeDiscount validates lines and applies p's discount rule to them.
func (e *DiscountEngine) ComputeDiscount(p *promo.PromoCode, lines []promo.Line) (promo.Discount, error) {
	if err := promo.ValidateLines(lines); err != nil {
		return promo.Discount{}, err
	}
	return p.ComputeDiscount(lines)
}

// ApplyAndRecord increments the code's usage counter and appends a usage
// record in one transaction. Eligibility is not re-checked; the conditional
// increment alone guards the total usage limit. It returns
// promo.ErrGlobalLimitReached when the limit was reached concurrently and
// promo.ErrAlreadyRecorded when the order already redeemed this code.
func (e *DiscountEngine) ApplyAndRecord(ctx context.Context, p *promo.PromoCode, customerID, orderID uuid.UUID, discount decimal.Decimal) error {
	r := promo.Redemption{PromoCode: p, CustomerID: customerID, OrderID: orderID, Discount: discount}
	if err := e.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return e.record(ctx, r)
	}); err != nil {
		return err
	}
	e.logRedeemed(r)
	return nil
}

// ApplyAll records every redemption in a single transaction, so either all
// of them count or none do.
func (e *DiscountEngine) ApplyAll(ctx context.Context, redemptions []promo.Redemption) error {
	if err := e.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, r := range redemptions {
			if err := e.record(ctx, r); err != nil {
				return errors.Wrapf(err, "redeem %s", r.PromoCode.Code())
			}
		}
		return nil
	}); err != nil {
		return err
	}
	for _, r := range redemptions {
		e.logRedeemed(r)
	}
	return nil
}

// record must run inside a transaction.
func (e *DiscountEngine) record(ctx context.Context, r promo.Redemption) error {
	ok, err := e.promos.IncrementUsageAtomic(ctx, r.PromoCode.ID())
	if err != nil {
		return errors.Wrap(err, "increment usage")
	}
	if !ok {
		return promo.ErrGlobalLimitReached
	}
	return e.ledger.Record(ctx, promo.NewUsageRecord(r.PromoCode.ID(), r.CustomerID, r.OrderID, r.Discount))
}

func (e *DiscountEngine) logRedeemed(r promo.Redemption) {
	e.logger.Info("promo code redeemed",
		zap.String("promo_code_id", r.PromoCode.ID().String()),
		zap.String("code", r.PromoCode.Code()),
		zap.String("order_id", r.OrderID.String()),
		zap.String("discount", r.Discount.StringFixed(2)),
	)
}

// ApplyCommittedOrder records a redemption reported by the order workflow.
func (e *DiscountEngine) ApplyCommittedOrder(ctx context.Context, promoCodeID, customerID, orderID uuid.UUID, discount decimal.Decimal) error {
	p, err := e.promos.FindByID(ctx, promoCodeID)
	if err != nil {
		return errors.Wrap(err, "find promo code")
	}
	return e.ApplyAndRecord(ctx, p, customerID, orderID, discount)
}

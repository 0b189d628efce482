package promo

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/forkline-eats/service-promo/internal/platform/apperror"
)

// Line is an already-priced cart or order line. The price is the snapshot
// taken when the item was added to the cart.
type Line struct {
	MenuItemID uuid.UUID
	CategoryID uuid.UUID
	UnitPrice  decimal.Decimal
	Quantity   int
}

// Total returns UnitPrice × Quantity.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ValidateLines rejects negative prices and non-positive quantities.
func ValidateLines(lines []Line) error {
	for i, l := range lines {
		if l.UnitPrice.IsNegative() {
			return apperror.NewValidationError(fmt.Sprintf("line %d: unit price must not be negative", i))
		}
		if l.Quantity <= 0 {
			return apperror.NewValidationError(fmt.Sprintf("line %d: quantity must be positive", i))
		}
	}
	return nil
}

// Subtotal sums every line.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// Discount is the outcome of applying a promo code to a set of lines.
type Discount struct {
	Amount           decimal.Decimal
	ApplicableAmount decimal.Decimal
	Subtotal         decimal.Decimal
}

// FinalAmount is what the customer pays after the discount.
func (d Discount) FinalAmount() decimal.Decimal {
	return d.Subtotal.Sub(d.Amount)
}

// ComputeDiscount applies the code's discount rule to lines.
//
// The amount is capped by MaximumDiscountAmount, then by the subtotal, and
// finally rounded half-up to cents. A category-restricted code with no
// matching lines yields a zero discount rather than an error.
func (p *PromoCode) ComputeDiscount(lines []Line) (Discount, error) {
	subtotal := Subtotal(lines)
	if subtotal.LessThan(p.rules.MinimumOrderAmount) {
		return Discount{}, belowMinimum(p.rules.MinimumOrderAmount)
	}

	applicable, matched := subtotal, len(lines)
	if len(p.rules.ApplicableCategories) > 0 {
		applicable, matched = decimal.Zero, 0
		for _, l := range lines {
			if p.AppliesTo(l.CategoryID) {
				applicable = applicable.Add(l.Total())
				matched++
			}
		}
	}

	var raw decimal.Decimal
	switch p.rules.DiscountType {
	case DiscountTypePercentage:
		raw = applicable.Mul(p.rules.DiscountValue).Div(hundred)
	case DiscountTypeFixedAmount:
		raw = p.rules.DiscountValue
		if matched == 0 {
			raw = decimal.Zero
		}
	default:
		panic(fmt.Sprintf("promo: unhandled discount type %q", string(p.rules.DiscountType)))
	}

	amount := raw
	if p.rules.MaximumDiscountAmount.Valid {
		amount = decimal.Min(amount, p.rules.MaximumDiscountAmount.Decimal)
	}
	amount = decimal.Min(amount, subtotal)

	return Discount{
		Amount:           amount.Round(2),
		ApplicableAmount: applicable,
		Subtotal:         subtotal,
	}, nil
}

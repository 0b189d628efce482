package promo

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/forkline-eats/service-promo/internal/platform/apperror"
)

// DiscountType represents the type of discount.
type DiscountType string

const (
	DiscountTypePercentage  DiscountType = "percentage"
	DiscountTypeFixedAmount DiscountType = "fixed_amount"
)

// Valid reports whether t is one of the known discount types.
func (t DiscountType) Valid() bool {
	switch t {
	case DiscountTypePercentage, DiscountTypeFixedAmount:
		return true
	default:
		return false
	}
}

var hundred = decimal.NewFromInt(100)

// Rules are the owner-configurable attributes of a promo code.
type Rules struct {
	Code                  string
	DiscountType          DiscountType
	DiscountValue         decimal.Decimal
	MinimumOrderAmount    decimal.Decimal
	MaximumDiscountAmount decimal.NullDecimal
	UsageLimitPerCustomer *int
	TotalUsageLimit       *int
	ApplicableCategories  []uuid.UUID
	IsActive              bool
	ValidFrom             time.Time
	ValidUntil            time.Time
}

// Validate checks the invariants a stored promo code must satisfy.
func (r Rules) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return apperror.NewValidationError("promo code is required")
	}
	if !r.DiscountType.Valid() {
		return apperror.NewValidationError(fmt.Sprintf("invalid discount type: %s", r.DiscountType))
	}
	if r.DiscountValue.IsNegative() {
		return apperror.NewValidationError("discount value must not be negative")
	}
	if r.DiscountType == DiscountTypePercentage && r.DiscountValue.GreaterThan(hundred) {
		return apperror.NewValidationError("percentage discount cannot exceed 100")
	}
	if r.MinimumOrderAmount.IsNegative() {
		return apperror.NewValidationError("minimum order amount must not be negative")
	}
	if r.MaximumDiscountAmount.Valid && r.MaximumDiscountAmount.Decimal.IsNegative() {
		return apperror.NewValidationError("maximum discount amount must not be negative")
	}
	if !hasMoneyScale(r.DiscountValue) || !hasMoneyScale(r.MinimumOrderAmount) ||
		(r.MaximumDiscountAmount.Valid && !hasMoneyScale(r.MaximumDiscountAmount.Decimal)) {
		return apperror.NewValidationError("amounts must have at most 2 decimal places")
	}
	if r.UsageLimitPerCustomer != nil && *r.UsageLimitPerCustomer <= 0 {
		return apperror.NewValidationError("usage limit per customer must be positive")
	}
	if r.TotalUsageLimit != nil && *r.TotalUsageLimit <= 0 {
		return apperror.NewValidationError("total usage limit must be positive")
	}
	if r.ValidUntil.Before(r.ValidFrom) {
		return apperror.NewValidationError("valid_until must not be before valid_from")
	}
	return nil
}

// hasMoneyScale reports whether v fits the NUMERIC(12,2) columns unrounded.
func hasMoneyScale(v decimal.Decimal) bool {
	return v.Equal(v.Round(2))
}

// PromoCode is the aggregate root for restaurant-scoped promotional codes.
type PromoCode struct {
	id           uuid.UUID
	restaurantID uuid.UUID
	rules        Rules
	usedCount    int
	createdBy    uuid.UUID
	createdAt    time.Time
	updatedAt    time.Time
}

// NewPromoCode creates a new promo code owned by restaurantID.
// The code is trimmed but keeps its case.
func NewPromoCode(restaurantID, createdBy uuid.UUID, rules Rules) (*PromoCode, error) {
	if restaurantID == uuid.Nil {
		return nil, apperror.NewValidationError("restaurant id is required")
	}
	rules.Code = strings.TrimSpace(rules.Code)
	rules.ApplicableCategories = dedupe(rules.ApplicableCategories)
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &PromoCode{
		id:           uuid.New(),
		restaurantID: restaurantID,
		rules:        rules,
		createdBy:    createdBy,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// Reconstruct rebuilds a PromoCode from persistence.
func Reconstruct(id, restaurantID uuid.UUID, rules Rules, usedCount int, createdBy uuid.UUID, createdAt, updatedAt time.Time) *PromoCode {
	return &PromoCode{
		id:           id,
		restaurantID: restaurantID,
		rules:        rules,
		usedCount:    usedCount,
		createdBy:    createdBy,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

// CheckUsable applies the code-level checks in order: active flag, inclusive
// validity window, then the global usage limit.
func (p *PromoCode) CheckUsable(now time.Time) error {
	if !p.rules.IsActive {
		return ErrInactive
	}
	if now.Before(p.rules.ValidFrom) || now.After(p.rules.ValidUntil) {
		return ErrOutOfWindow
	}
	if p.rules.TotalUsageLimit != nil && p.usedCount >= *p.rules.TotalUsageLimit {
		return ErrGlobalLimitReached
	}
	return nil
}

// CheckCustomerUsage rejects a customer who already redeemed the code
// usageLimitPerCustomer times.
func (p *PromoCode) CheckCustomerUsage(priorUses int) error {
	if p.rules.UsageLimitPerCustomer != nil && priorUses >= *p.rules.UsageLimitPerCustomer {
		return ErrCustomerLimitReached
	}
	return nil
}

// LimitsCustomers reports whether a per-customer limit is configured.
func (p *PromoCode) LimitsCustomers() bool {
	return p.rules.UsageLimitPerCustomer != nil
}

// AppliesTo reports whether a line in categoryID counts toward the applicable amount.
func (p *PromoCode) AppliesTo(categoryID uuid.UUID) bool {
	if len(p.rules.ApplicableCategories) == 0 {
		return true
	}
	for _, c := range p.rules.ApplicableCategories {
		if c == categoryID {
			return true
		}
	}
	return false
}

// Getters.
func (p *PromoCode) ID() uuid.UUID                              { return p.id }
func (p *PromoCode) RestaurantID() uuid.UUID                    { return p.restaurantID }
func (p *PromoCode) Code() string                               { return p.rules.Code }
func (p *PromoCode) DiscountType() DiscountType                 { return p.rules.DiscountType }
func (p *PromoCode) DiscountValue() decimal.Decimal             { return p.rules.DiscountValue }
func (p *PromoCode) MinimumOrderAmount() decimal.Decimal        { return p.rules.MinimumOrderAmount }
func (p *PromoCode) MaximumDiscountAmount() decimal.NullDecimal { return p.rules.MaximumDiscountAmount }
func (p *PromoCode) UsageLimitPerCustomer() *int                { return p.rules.UsageLimitPerCustomer }
func (p *PromoCode) TotalUsageLimit() *int                      { return p.rules.TotalUsageLimit }
func (p *PromoCode) ApplicableCategories() []uuid.UUID          { return p.rules.ApplicableCategories }
func (p *PromoCode) IsActive() bool                             { return p.rules.IsActive }
func (p *PromoCode) ValidFrom() time.Time                       { return p.rules.ValidFrom }
func (p *PromoCode) ValidUntil() time.Time                      { return p.rules.ValidUntil }
func (p *PromoCode) UsedCount() int                             { return p.usedCount }
func (p *PromoCode) CreatedBy() uuid.UUID                       { return p.createdBy }
func (p *PromoCode) CreatedAt() time.Time                       { return p.createdAt }
func (p *PromoCode) UpdatedAt() time.Time                       { return p.updatedAt }
func (p *PromoCode) Rules() Rules                               { return p.rules }

func dedupe(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

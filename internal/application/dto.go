package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/forkline-eats/service-promo/internal/domain/delivery"
	"github.com/forkline-eats/service-promo/internal/domain/promo"
)

// LineRequest is one already-priced cart line.
type LineRequest struct {
	MenuItemID uuid.UUID       `json:"menu_item_id" binding:"required"`
	CategoryID uuid.UUID       `json:"category_id"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity" binding:"required,gt=0"`
}

// CreatePromoRequest holds data to create a promo code.
type CreatePromoRequest struct {
	Code                  string              `json:"code" binding:"required,max=50"`
	DiscountType          string              `json:"discount_type" binding:"required,oneof=percentage fixed_amount"`
	DiscountValue         decimal.Decimal     `json:"discount_value"`
	MinimumOrderAmount    decimal.Decimal     `json:"minimum_order_amount"`
	MaximumDiscountAmount decimal.NullDecimal `json:"maximum_discount_amount"`
	UsageLimitPerCustomer *int                `json:"usage_limit_per_customer"`
	TotalUsageLimit       *int                `json:"total_usage_limit"`
	ApplicableCategories  []uuid.UUID         `json:"applicable_categories"`
	IsActive              *bool               `json:"is_active"`
	ValidFrom             time.Time           `json:"valid_from" binding:"required"`
	ValidUntil            time.Time           `json:"valid_until" binding:"required"`
}

// ValidatePromoRequest asks whether a code applies to a cart of one restaurant.
type ValidatePromoRequest struct {
	RestaurantID uuid.UUID     `json:"restaurant_id" binding:"required"`
	Code         string        `json:"code" binding:"required"`
	Lines        []LineRequest `json:"lines" binding:"dive"`
}

// PromoDTO is the API representation of a promo code.
type PromoDTO struct {
	ID                    uuid.UUID   `json:"id"`
	RestaurantID          uuid.UUID   `json:"restaurant_id"`
	Code                  string      `json:"code"`
	DiscountType          string      `json:"discount_type"`
	DiscountValue         float64     `json:"discount_value"`
	MinimumOrderAmount    float64     `json:"minimum_order_amount"`
	MaximumDiscountAmount *float64    `json:"maximum_discount_amount,omitempty"`
	UsageLimitPerCustomer *int        `json:"usage_limit_per_customer,omitempty"`
	TotalUsageLimit       *int        `json:"total_usage_limit,omitempty"`
	UsedCount             int         `json:"used_count"`
	ApplicableCategories  []uuid.UUID `json:"applicable_categories,omitempty"`
	IsActive              bool        `json:"is_active"`
	ValidFrom             time.Time   `json:"valid_from"`
	ValidUntil            time.Time   `json:"valid_until"`
	CreatedAt             time.Time   `json:"created_at"`
}

// PromoValidationDTO is the body of the validate endpoint. Amounts are only
// present when the code is valid; Reason and Message only when it is not.
type PromoValidationDTO struct {
	Valid            bool     `json:"valid"`
	Reason           string   `json:"reason,omitempty"`
	Message          string   `json:"message,omitempty"`
	Discount         *float64 `json:"discount,omitempty"`
	ApplicableAmount *float64 `json:"applicable_amount,omitempty"`
	TotalAmount      *float64 `json:"total_amount,omitempty"`
	FinalAmount      *float64 `json:"final_amount,omitempty"`
}

// UsageDTO is one entry of a promo code's usage ledger.
type UsageDTO struct {
	ID             uuid.UUID  `json:"id"`
	PromoCodeID    uuid.UUID  `json:"promo_code_id"`
	CustomerID     *uuid.UUID `json:"customer_id,omitempty"`
	OrderID        uuid.UUID  `json:"order_id"`
	DiscountAmount float64    `json:"discount_amount"`
	UsedAt         time.Time  `json:"used_at"`
}

// DeliveryRequest checks one restaurant against a delivery point.
type DeliveryRequest struct {
	RestaurantID uuid.UUID `json:"restaurant_id" binding:"required"`
	Latitude     *float64  `json:"latitude" binding:"required"`
	Longitude    *float64  `json:"longitude" binding:"required"`
}

// CartDeliveryRequest checks every restaurant of a cart against a delivery point.
type CartDeliveryRequest struct {
	RestaurantIDs []uuid.UUID `json:"restaurant_ids" binding:"required,dive,required"`
	Latitude      *float64    `json:"latitude" binding:"required"`
	Longitude     *float64    `json:"longitude" binding:"required"`
}

// DeliveryResultDTO reports whether one restaurant delivers to the point.
type DeliveryResultDTO struct {
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Possible     bool      `json:"possible"`
	DistanceKm   float64   `json:"distance_km"`
	MaxRangeKm   float64   `json:"max_range_km"`
}

// CartDeliveryDTO aggregates delivery results in request order.
type CartDeliveryDTO struct {
	AllDeliverable bool                `json:"all_deliverable"`
	PerRestaurant  []DeliveryResultDTO `json:"per_restaurant"`
}

// CheckoutGroupRequest is the part of a cart belonging to one restaurant.
type CheckoutGroupRequest struct {
	RestaurantID uuid.UUID     `json:"restaurant_id" binding:"required"`
	PromoCode    string        `json:"promo_code"`
	Lines        []LineRequest `json:"lines" binding:"required,min=1,dive"`
}

// CheckoutRequest places a multi-restaurant order.
type CheckoutRequest struct {
	Groups    []CheckoutGroupRequest `json:"groups" binding:"required,min=1,dive"`
	Latitude  *float64               `json:"latitude"`
	Longitude *float64               `json:"longitude"`
}

// CheckoutGroupDTO reports the totals of one restaurant group.
type CheckoutGroupDTO struct {
	RestaurantID uuid.UUID `json:"restaurant_id"`
	PromoCode    string    `json:"promo_code,omitempty"`
	Subtotal     float64   `json:"subtotal"`
	Discount     float64   `json:"discount"`
	Total        float64   `json:"total"`
}

// CheckoutDTO is the result of a successful checkout.
type CheckoutDTO struct {
	OrderID         uuid.UUID          `json:"order_id"`
	AuthorizationID string             `json:"authorization_id"`
	Currency        string             `json:"currency"`
	Groups          []CheckoutGroupDTO `json:"groups"`
	Subtotal        float64            `json:"subtotal"`
	Discount        float64            `json:"discount"`
	Total           float64            `json:"total"`
	Delivery        *CartDeliveryDTO   `json:"delivery,omitempty"`
}

func toLines(reqs []LineRequest) []promo.Line {
	lines := make([]promo.Line, len(reqs))
	for i, r := range reqs {
		lines[i] = promo.Line{
			MenuItemID: r.MenuItemID,
			CategoryID: r.CategoryID,
			UnitPrice:  r.UnitPrice,
			Quantity:   r.Quantity,
		}
	}
	return lines
}

// money renders a decimal amount as a JSON number with at most two decimals.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func moneyPtr(d decimal.Decimal) *float64 {
	v := money(d)
	return &v
}

func toPromoDTO(p *promo.PromoCode) *PromoDTO {
	dto := &PromoDTO{
		ID:                    p.ID(),
		RestaurantID:          p.RestaurantID(),
		Code:                  p.Code(),
		DiscountType:          string(p.DiscountType()),
		DiscountValue:         money(p.DiscountValue()),
		MinimumOrderAmount:    money(p.MinimumOrderAmount()),
		UsageLimitPerCustomer: p.UsageLimitPerCustomer(),
		TotalUsageLimit:       p.TotalUsageLimit(),
		UsedCount:             p.UsedCount(),
		ApplicableCategories:  p.ApplicableCategories(),
		IsActive:              p.IsActive(),
		ValidFrom:             p.ValidFrom(),
		ValidUntil:            p.ValidUntil(),
		CreatedAt:             p.CreatedAt(),
	}
	if limit := p.MaximumDiscountAmount(); limit.Valid {
		dto.MaximumDiscountAmount = moneyPtr(limit.Decimal)
	}
	return dto
}

func toPromoDTOs(promos []*promo.PromoCode) []*PromoDTO {
	dtos := make([]*PromoDTO, len(promos))
	for i, p := range promos {
		dtos[i] = toPromoDTO(p)
	}
	return dtos
}

func toUsageDTO(u *promo.UsageRecord) UsageDTO {
	dto := UsageDTO{
		ID:             u.ID,
		PromoCodeID:    u.PromoCodeID,
		OrderID:        u.OrderID,
		DiscountAmount: money(u.DiscountAmount),
		UsedAt:         u.UsedAt,
	}
	if u.CustomerID != uuid.Nil {
		id := u.CustomerID
		dto.CustomerID = &id
	}
	return dto
}

func toDeliveryResultDTO(restaurantID uuid.UUID, r delivery.Result) DeliveryResultDTO {
	return DeliveryResultDTO{
		RestaurantID: restaurantID,
		Possible:     r.Possible,
		DistanceKm:   r.DistanceKm,
		MaxRangeKm:   r.MaxRangeKm,
	}
}

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
	"github.com/forkline-eats/service-promo/internal/saga"
)

// ErrNotDeliverable is returned when a restaurant of the cart cannot deliver
// to the requested point.
var ErrNotDeliverable = errors.New("cart is not deliverable to this address")

// CheckoutRunner commits a priced order. Satisfied by *saga.CheckoutSagaService.
type CheckoutRunner interface {
	Run(ctx context.Context, order saga.CheckoutOrder) (string, error)
}

// CheckoutService prices a multi-restaurant cart, applies promo codes per
// restaurant and commits the order through the checkout saga.
type CheckoutService struct {
	engine   *DiscountEngine
	delivery *DeliveryService
	runner   CheckoutRunner
	currency string
	now      func() time.Time
	logger   *zap.Logger
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(
	engine *DiscountEngine,
	delivery *DeliveryService,
	runner CheckoutRunner,
	currency string,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		engine:   engine,
		delivery: delivery,
		runner:   runner,
		currency: currency,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// Checkout validates delivery when coordinates are given, checks and prices
// every promo code, then authorizes payment and records the redemptions.
// customerID is uuid.Nil for guests.
func (s *CheckoutService) Checkout(ctx context.Context, customerID uuid.UUID, req CheckoutRequest) (*CheckoutDTO, error) {
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return nil, apperror.NewValidationError("latitude and longitude must be given together")
	}

	restaurantIDs := make([]uuid.UUID, len(req.Groups))
	seen := make(map[uuid.UUID]struct{}, len(req.Groups))
	for i, g := range req.Groups {
		if _, dup := seen[g.RestaurantID]; dup {
			return nil, apperror.NewValidationError("each restaurant may appear in only one group")
		}
		seen[g.RestaurantID] = struct{}{}
		restaurantIDs[i] = g.RestaurantID
	}

	result := &CheckoutDTO{
		OrderID:  uuid.New(),
		Currency: s.currency,
		Groups:   make([]CheckoutGroupDTO, 0, len(req.Groups)),
	}

	if req.Latitude != nil {
		cart, err := s.delivery.ValidateCart(ctx, restaurantIDs, *req.Latitude, *req.Longitude)
		if err != nil {
			return nil, err
		}
		if !cart.AllDeliverable {
			return nil, ErrNotDeliverable
		}
		result.Delivery = cart
	}

	now := s.now()
	var (
		subtotal    = decimal.Zero
		discount    = decimal.Zero
		redemptions []promo.Redemption
	)
	for _, g := range req.Groups {
		lines := toLines(g.Lines)
		if err := promo.ValidateLines(lines); err != nil {
			return nil, err
		}

		groupSubtotal := promo.Subtotal(lines)
		groupDiscount := decimal.Zero
		if g.PromoCode != "" {
			p, err := s.engine.CheckEligibility(ctx, g.PromoCode, g.RestaurantID, customerID, now)
			if err != nil {
				return nil, errors.Wrapf(err, "restaurant %s", g.RestaurantID)
			}
			d, err := s.engine.ComputeDiscount(p, lines)
			if err != nil {
				return nil, errors.Wrapf(err, "restaurant %s", g.RestaurantID)
			}
			groupDiscount = d.Amount
			redemptions = append(redemptions, promo.Redemption{
				PromoCode:  p,
				CustomerID: customerID,
				OrderID:    result.OrderID,
				Discount:   d.Amount,
			})
		}

		subtotal = subtotal.Add(groupSubtotal)
		discount = discount.Add(groupDiscount)
		result.Groups = append(result.Groups, CheckoutGroupDTO{
			RestaurantID: g.RestaurantID,
			PromoCode:    g.PromoCode,
			Subtotal:     money(groupSubtotal),
			Discount:     money(groupDiscount),
			Total:        money(groupSubtotal.Sub(groupDiscount)),
		})
	}
	total := subtotal.Sub(discount)

	authorizationID, err := s.runner.Run(ctx, saga.CheckoutOrder{
		OrderID:     result.OrderID,
		CustomerID:  customerID,
		Amount:      total,
		Currency:    s.currency,
		Redemptions: redemptions,
	})
	if err != nil {
		return nil, err
	}

	result.AuthorizationID = authorizationID
	result.Subtotal = money(subtotal)
	result.Discount = money(discount)
	result.Total = money(total)

	s.logger.Info("checkout completed",
		zap.String("order_id", result.OrderID.String()),
		zap.Int("restaurants", len(req.Groups)),
		zap.Int("promo_codes", len(redemptions)),
		zap.String("total", total.StringFixed(2)),
	)
	return result, nil
}

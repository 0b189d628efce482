package application

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/forkline-eats/service-promo/internal/domain/promo"
	"github.com/forkline-eats/service-promo/internal/platform/apperror"
	"github.com/forkline-eats/service-promo/internal/platform/auth"
)

// RestaurantOwnership resolves which user owns a restaurant.
type RestaurantOwnership interface {
	FindOwnerID(ctx context.Context, restaurantID uuid.UUID) (uuid.UUID, error)
}

// PromoService handles promo code administration and cart previews.
type PromoService struct {
	engine      *DiscountEngine
	promos      promo.PromoCodeRepository
	ledger      promo.UsageLedger
	restaurants RestaurantOwnership
	now         func() time.Time
	logger      *zap.Logger
}

// NewPromoService creates a new PromoService.
func NewPromoService(
	engine *DiscountEngine,
	promos promo.PromoCodeRepository,
	ledger promo.UsageLedger,
	restaurants RestaurantOwnership,
	logger *zap.Logger,
) *PromoService {
	return &PromoService{
		engine:      engine,
		promos:      promos,
		ledger:      ledger,
		restaurants: restaurants,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger,
	}
}

// CreatePromo creates a promo code for a restaurant. Owners may only create
// codes for their own restaurants; admins for any.
func (s *PromoService) CreatePromo(ctx context.Context, actorID uuid.UUID, role auth.Role, restaurantID uuid.UUID, req CreatePromoRequest) (*PromoDTO, error) {
	if role != auth.RoleAdmin {
		ownerID, err := s.restaurants.FindOwnerID(ctx, restaurantID)
		if err != nil {
			return nil, err
		}
		if ownerID != actorID {
			return nil, apperror.NewForbiddenError("you do not own this restaurant")
		}
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	p, err := promo.NewPromoCode(restaurantID, actorID, promo.Rules{
		Code:                  req.Code,
		DiscountType:          promo.DiscountType(req.DiscountType),
		DiscountValue:         req.DiscountValue,
		MinimumOrderAmount:    req.MinimumOrderAmount,
		MaximumDiscountAmount: req.MaximumDiscountAmount,
		UsageLimitPerCustomer: req.UsageLimitPerCustomer,
		TotalUsageLimit:       req.TotalUsageLimit,
		ApplicableCategories:  req.ApplicableCategories,
		IsActive:              isActive,
		ValidFrom:             req.ValidFrom.UTC(),
		ValidUntil:            req.ValidUntil.UTC(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.promos.Save(ctx, p); err != nil {
		return nil, errors.Wrap(err, "save promo code")
	}

	s.logger.Info("promo code created",
		zap.String("promo_code_id", p.ID().String()),
		zap.String("restaurant_id", restaurantID.String()),
		zap.String("code", p.Code()),
	)
	return toPromoDTO(p), nil
}

// ValidatePromo previews a code against a cart without recording anything.
// Business-rule failures are reported in the result, not as an error; only
// bad input and storage failures return an error.
func (s *PromoService) ValidatePromo(ctx context.Context, customerID uuid.UUID, req ValidatePromoRequest) (*PromoValidationDTO, error) {
	lines := toLines(req.Lines)
	if err := promo.ValidateLines(lines); err != nil {
		return nil, err
	}

	p, err := s.engine.CheckEligibility(ctx, req.Code, req.RestaurantID, customerID, s.now())
	if err != nil {
		return invalidResult(err)
	}

	discount, err := s.engine.ComputeDiscount(p, lines)
	if err != nil {
		return invalidResult(err)
	}

	return &PromoValidationDTO{
		Valid:            true,
		Discount:         moneyPtr(discount.Amount),
		ApplicableAmount: moneyPtr(discount.ApplicableAmount),
		TotalAmount:      moneyPtr(discount.Subtotal),
		FinalAmount:      moneyPtr(discount.FinalAmount()),
	}, nil
}

func invalidResult(err error) (*PromoValidationDTO, error) {
	var ruleErr *promo.RuleError
	if !errors.As(err, &ruleErr) {
		return nil, err
	}
	return &PromoValidationDTO{
		Valid:   false,
		Reason:  string(ruleErr.Reason),
		Message: ruleErr.Message,
	}, nil
}

// ListActivePromos returns the codes a restaurant currently accepts.
func (s *PromoService) ListActivePromos(ctx context.Context, restaurantID uuid.UUID) ([]*PromoDTO, error) {
	promos, err := s.promos.FindActiveByRestaurant(ctx, restaurantID, s.now())
	if err != nil {
		return nil, err
	}
	return toPromoDTOs(promos), nil
}

// ListRestaurantPromos returns every code of a restaurant (admin).
func (s *PromoService) ListRestaurantPromos(ctx context.Context, restaurantID uuid.UUID) ([]*PromoDTO, error) {
	promos, err := s.promos.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	return toPromoDTOs(promos), nil
}

// ListUsages returns one page of a code's usage ledger (admin).
func (s *PromoService) ListUsages(ctx context.Context, promoCodeID uuid.UUID, page, limit int) ([]UsageDTO, int64, error) {
	if _, err := s.promos.FindByID(ctx, promoCodeID); err != nil {
		return nil, 0, err
	}

	usages, total, err := s.ledger.ListByPromoCode(ctx, promoCodeID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	dtos := make([]UsageDTO, len(usages))
	for i, u := range usages {
		dtos[i] = toUsageDTO(u)
	}
	return dtos, total, nil
}

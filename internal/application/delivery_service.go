package application

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/forkline-eats/service-promo/internal/domain/delivery"
)

// RestaurantLocationProvider resolves where a restaurant is and how far it delivers.
type RestaurantLocationProvider interface {
	FindLocation(ctx context.Context, restaurantID uuid.UUID) (delivery.Location, error)
}

// DeliveryService answers delivery-range questions for restaurants and carts.
type DeliveryService struct {
	locations RestaurantLocationProvider
	logger    *zap.Logger
}

// NewDeliveryService creates a new DeliveryService.
func NewDeliveryService(locations RestaurantLocationProvider, logger *zap.Logger) *DeliveryService {
	return &DeliveryService{locations: locations, logger: logger}
}

// ValidateDelivery checks one restaurant against a delivery point.
func (s *DeliveryService) ValidateDelivery(ctx context.Context, restaurantID uuid.UUID, lat, lng float64) (*DeliveryResultDTO, error) {
	loc, err := s.locations.FindLocation(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	res, err := delivery.ValidateDelivery(loc, lat, lng)
	if err != nil {
		return nil, errors.Wrapf(err, "restaurant %s", restaurantID)
	}

	dto := toDeliveryResultDTO(restaurantID, res)
	return &dto, nil
}

// ValidateCart checks every restaurant of a cart, keeping request order. An
// empty cart is deliverable.
func (s *DeliveryService) ValidateCart(ctx context.Context, restaurantIDs []uuid.UUID, lat, lng float64) (*CartDeliveryDTO, error) {
	locs := make([]delivery.Location, len(restaurantIDs))
	for i, id := range restaurantIDs {
		loc, err := s.locations.FindLocation(ctx, id)
		if err != nil {
			return nil, err
		}
		locs[i] = loc
	}

	res, err := delivery.ValidateCart(locs, lat, lng)
	if err != nil {
		return nil, err
	}

	dto := &CartDeliveryDTO{
		AllDeliverable: res.AllDeliverable,
		PerRestaurant:  make([]DeliveryResultDTO, len(res.PerRestaurant)),
	}
	for i, r := range res.PerRestaurant {
		dto.PerRestaurant[i] = toDeliveryResultDTO(restaurantIDs[i], r)
	}
	if !dto.AllDeliverable {
		s.logger.Debug("cart not deliverable",
			zap.Int("restaurants", len(restaurantIDs)),
			zap.Float64("latitude", lat),
			zap.Float64("longitude", lng),
		)
	}
	return dto, nil
}

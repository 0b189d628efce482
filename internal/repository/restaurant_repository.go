package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkline-eats/service-promo/internal/domain/delivery"
	"github.com/forkline-eats/service-promo/internal/platform/apperror"
)

// RestaurantModel is the GORM model for the restaurants table. Restaurants
// are managed elsewhere; this service only reads them.
type RestaurantModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID         uuid.UUID `gorm:"type:uuid;not null;index"`
	Name            string    `gorm:"type:varchar(255);not null"`
	Latitude        float64   `gorm:"not null"`
	Longitude       float64   `gorm:"not null"`
	DeliveryRangeKm float64   `gorm:"not null"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName sets the table name.
func (RestaurantModel) TableName() string { return "restaurants" }

// GormRestaurantRepository reads restaurant locations and ownership.
type GormRestaurantRepository struct {
	db *gorm.DB
}

// NewGormRestaurantRepository creates a new GormRestaurantRepository.
func NewGormRestaurantRepository(db *gorm.DB) *GormRestaurantRepository {
	return &GormRestaurantRepository{db: db}
}

// FindLocation returns the position and delivery range of a restaurant.
func (r *GormRestaurantRepository) FindLocation(ctx context.Context, restaurantID uuid.UUID) (delivery.Location, error) {
	model, err := r.find(ctx, restaurantID)
	if err != nil {
		return delivery.Location{}, err
	}
	return delivery.Location{
		LatitudeDegrees:  model.Latitude,
		LongitudeDegrees: model.Longitude,
		DeliveryRangeKm:  model.DeliveryRangeKm,
	}, nil
}

// FindOwnerID returns the user that owns a restaurant.
func (r *GormRestaurantRepository) FindOwnerID(ctx context.Context, restaurantID uuid.UUID) (uuid.UUID, error) {
	model, err := r.find(ctx, restaurantID)
	if err != nil {
		return uuid.Nil, err
	}
	return model.OwnerID, nil
}

func (r *GormRestaurantRepository) find(ctx context.Context, restaurantID uuid.UUID) (*RestaurantModel, error) {
	var model RestaurantModel
	if err := conn(ctx, r.db).Where("id = ?", restaurantID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFoundError("Restaurant", restaurantID.String())
		}
		return nil, apperror.NewStorageError("find restaurant", err)
	}
	return &model, nil
}

package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	promoDomain "github.com/forkline-eats/service-promo/internal/domain/promo"
	"github.com/forkline-eats/service-promo/internal/platform/apperror"
)

// PromoCodeModel is the GORM model for the promo_codes table.
type PromoCodeModel struct {
	ID                    uuid.UUID           `gorm:"type:uuid;primaryKey"`
	RestaurantID          uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_promo_codes_restaurant_code,priority:1"`
	Code                  string              `gorm:"type:varchar(50);not null;uniqueIndex:idx_promo_codes_restaurant_code,priority:2"`
	DiscountType          string              `gorm:"type:varchar(20);not null"`
	DiscountValue         decimal.Decimal     `gorm:"type:numeric(12,2);not null"`
	MinimumOrderAmount    decimal.Decimal     `gorm:"type:numeric(12,2);not null;default:0"`
	MaximumDiscountAmount decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	UsageLimitPerCustomer *int
	TotalUsageLimit       *int
	UsedCount             int `gorm:"not null;default:0"`
	ApplicableCategories  datatypes.JSONSlice[uuid.UUID]
	IsActive              bool      `gorm:"not null"`
	ValidFrom             time.Time `gorm:"not null"`
	ValidUntil            time.Time `gorm:"not null;check:chk_promo_codes_window,valid_from <= valid_until"`
	CreatedBy             uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt             time.Time `gorm:"not null"`
	UpdatedAt             time.Time `gorm:"not null"`
}

// TableName sets the table name.
func (PromoCodeModel) TableName() string { return "promo_codes" }

// GormPromoCodeRepository implements promo.PromoCodeRepository using GORM.
type GormPromoCodeRepository struct {
	db *gorm.DB
}

// NewGormPromoCodeRepository creates a new GormPromoCodeRepository.
func NewGormPromoCodeRepository(db *gorm.DB) *GormPromoCodeRepository {
	return &GormPromoCodeRepository{db: db}
}

// Save persists a new promo code. A duplicate code for the same restaurant is a conflict.
func (r *GormPromoCodeRepository) Save(ctx context.Context, p *promoDomain.PromoCode) error {
	model := toPromoCodeModel(p)
	if err := conn(ctx, r.db).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperror.NewConflictError("promo code " + p.Code() + " already exists for this restaurant")
		}
		return apperror.NewStorageError("save promo code", err)
	}
	return nil
}

// FindByID returns a promo code by ID.
func (r *GormPromoCodeRepository) FindByID(ctx context.Context, id uuid.UUID) (*promoDomain.PromoCode, error) {
	var model PromoCodeModel
	if err := conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFoundError("PromoCode", id.String())
		}
		return nil, apperror.NewStorageError("find promo code", err)
	}
	return toPromoCodeDomain(&model), nil
}

// FindByCodeAndRestaurant matches the code exactly, case included.
func (r *GormPromoCodeRepository) FindByCodeAndRestaurant(ctx context.Context, code string, restaurantID uuid.UUID) (*promoDomain.PromoCode, error) {
	var model PromoCodeModel
	err := conn(ctx, r.db).
		Where("restaurant_id = ? AND code = ?", restaurantID, code).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFoundError("PromoCode", code)
		}
		return nil, apperror.NewStorageError("find promo code", err)
	}
	return toPromoCodeDomain(&model), nil
}

// FindActiveByRestaurant returns the codes of a restaurant that are active,
// inside their window at now, and not exhausted.
func (r *GormPromoCodeRepository) FindActiveByRestaurant(ctx context.Context, restaurantID uuid.UUID, now time.Time) ([]*promoDomain.PromoCode, error) {
	var models []PromoCodeModel
	err := conn(ctx, r.db).
		Where("restaurant_id = ? AND is_active = ?", restaurantID, true).
		Where("valid_from <= ? AND valid_until >= ?", now, now).
		Where("total_usage_limit IS NULL OR used_count < total_usage_limit").
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperror.NewStorageError("list active promo codes", err)
	}
	return toPromoCodeDomains(models), nil
}

// ListByRestaurant returns every code of a restaurant, newest first.
func (r *GormPromoCodeRepository) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]*promoDomain.PromoCode, error) {
	var models []PromoCodeModel
	err := conn(ctx, r.db).
		Where("restaurant_id = ?", restaurantID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, apperror.NewStorageError("list promo codes", err)
	}
	return toPromoCodeDomains(models), nil
}

// IncrementUsageAtomic bumps used_count only while it is below the total
// usage limit, so concurrent redemptions cannot overshoot it.
func (r *GormPromoCodeRepository) IncrementUsageAtomic(ctx context.Context, promoCodeID uuid.UUID) (bool, error) {
	db := conn(ctx, r.db)
	result := db.Model(&PromoCodeModel{}).
		Where("id = ?", promoCodeID).
		Where("total_usage_limit IS NULL OR used_count < total_usage_limit").
		UpdateColumns(map[string]any{
			"used_count": gorm.Expr("used_count + 1"),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, apperror.NewStorageError("increment promo usage", result.Error)
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	var count int64
	if err := db.Model(&PromoCodeModel{}).Where("id = ?", promoCodeID).Count(&count).Error; err != nil {
		return false, apperror.NewStorageError("increment promo usage", err)
	}
	if count == 0 {
		return false, apperror.NewNotFoundError("PromoCode", promoCodeID.String())
	}
	return false, nil
}

func toPromoCodeModel(p *promoDomain.PromoCode) PromoCodeModel {
	return PromoCodeModel{
		ID:                    p.ID(),
		RestaurantID:          p.RestaurantID(),
		Code:                  p.Code(),
		DiscountType:          string(p.DiscountType()),
		DiscountValue:         p.DiscountValue(),
		MinimumOrderAmount:    p.MinimumOrderAmount(),
		MaximumDiscountAmount: p.MaximumDiscountAmount(),
		UsageLimitPerCustomer: p.UsageLimitPerCustomer(),
		TotalUsageLimit:       p.TotalUsageLimit(),
		UsedCount:             p.UsedCount(),
		ApplicableCategories:  datatypes.JSONSlice[uuid.UUID](p.ApplicableCategories()),
		IsActive:              p.IsActive(),
		ValidFrom:             p.ValidFrom(),
		ValidUntil:            p.ValidUntil(),
		CreatedBy:             p.CreatedBy(),
		CreatedAt:             p.CreatedAt(),
		UpdatedAt:             p.UpdatedAt(),
	}
}

func toPromoCodeDomain(m *PromoCodeModel) *promoDomain.PromoCode {
	rules := promoDomain.Rules{
		Code:                  m.Code,
		DiscountType:          promoDomain.DiscountType(m.DiscountType),
		DiscountValue:         m.DiscountValue,
		MinimumOrderAmount:    m.MinimumOrderAmount,
		MaximumDiscountAmount: m.MaximumDiscountAmount,
		UsageLimitPerCustomer: m.UsageLimitPerCustomer,
		TotalUsageLimit:       m.TotalUsageLimit,
		IsActive:              m.IsActive,
		ValidFrom:             m.ValidFrom.UTC(),
		ValidUntil:            m.ValidUntil.UTC(),
	}
	if len(m.ApplicableCategories) > 0 {
		rules.ApplicableCategories = []uuid.UUID(m.ApplicableCategories)
	}
	return promoDomain.Reconstruct(
		m.ID, m.RestaurantID, rules, m.UsedCount,
		m.CreatedBy, m.CreatedAt.UTC(), m.UpdatedAt.UTC(),
	)
}

func toPromoCodeDomains(models []PromoCodeModel) []*promoDomain.PromoCode {
	promos := make([]*promoDomain.PromoCode, len(models))
	for i := range models {
		promos[i] = toPromoCodeDomain(&models[i])
	}
	return promos
}

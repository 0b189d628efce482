package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	promoDomain "github.com/forkline-eats/service-promo/internal/domain/promo"
	"github.com/forkline-eats/service-promo/internal/platform/apperror"
)

// PromoUsageModel is the GORM model for the promo_code_usages table.
type PromoUsageModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PromoCodeID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_promo_usages_customer,priority:2;uniqueIndex:idx_promo_usages_order,priority:2"`
	CustomerID     *uuid.UUID      `gorm:"type:uuid;index:idx_promo_usages_customer,priority:1"`
	OrderID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_promo_usages_order,priority:1"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	UsedAt         time.Time       `gorm:"not null"`
}

// TableName sets the table name.
func (PromoUsageModel) TableName() string { return "promo_code_usages" }

// GormUsageLedger implements promo.UsageLedger using GORM.
type GormUsageLedger struct {
	db *gorm.DB
}

// NewGormUsageLedger creates a new GormUsageLedger.
func NewGormUsageLedger(db *gorm.DB) *GormUsageLedger {
	return &GormUsageLedger{db: db}
}

// CountByCustomerAndCode counts how many times a customer redeemed a code.
func (l *GormUsageLedger) CountByCustomerAndCode(ctx context.Context, customerID, promoCodeID uuid.UUID) (int, error) {
	var count int64
	err := conn(ctx, l.db).
		Model(&PromoUsageModel{}).
		Where("promo_code_id = ? AND customer_id = ?", promoCodeID, customerID).
		Count(&count).Error
	if err != nil {
		return 0, apperror.NewStorageError("count promo usages", err)
	}
	return int(count), nil
}

// Record appends a usage. A second record for the same order and code
// returns promo.ErrAlreadyRecorded.
func (l *GormUsageLedger) Record(ctx context.Context, usage *promoDomain.UsageRecord) error {
	model := PromoUsageModel{
		ID:             usage.ID,
		PromoCodeID:    usage.PromoCodeID,
		OrderID:        usage.OrderID,
		DiscountAmount: usage.DiscountAmount,
		UsedAt:         usage.UsedAt,
	}
	if usage.CustomerID != uuid.Nil {
		customerID := usage.CustomerID
		model.CustomerID = &customerID
	}

	if err := conn(ctx, l.db).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return promoDomain.ErrAlreadyRecorded
		}
		return apperror.NewStorageError("record promo usage", err)
	}
	return nil
}

// ListByPromoCode returns one page of a code's usages, most recent first.
func (l *GormUsageLedger) ListByPromoCode(ctx context.Context, promoCodeID uuid.UUID, page, limit int) ([]*promoDomain.UsageRecord, int64, error) {
	db := conn(ctx, l.db)

	var total int64
	if err := db.Model(&PromoUsageModel{}).Where("promo_code_id = ?", promoCodeID).Count(&total).Error; err != nil {
		return nil, 0, apperror.NewStorageError("count promo usages", err)
	}

	var models []PromoUsageModel
	offset := (page - 1) * limit
	err := db.Where("promo_code_id = ?", promoCodeID).
		Order("used_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperror.NewStorageError("list promo usages", err)
	}

	usages := make([]*promoDomain.UsageRecord, len(models))
	for i, m := range models {
		usages[i] = &promoDomain.UsageRecord{
			ID:             m.ID,
			PromoCodeID:    m.PromoCodeID,
			OrderID:        m.OrderID,
			DiscountAmount: m.DiscountAmount,
			UsedAt:         m.UsedAt.UTC(),
		}
		if m.CustomerID != nil {
			usages[i].CustomerID = *m.CustomerID
		}
	}
	return usages, total, nil
}

package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/forkline-eats/service-promo/internal/platform/apperror"
)

type txKey struct{}

// GormTransactor implements promo.Transactor. The open transaction travels in
// the context so every repository call made with that context joins it.
type GormTransactor struct {
	db *gorm.DB
}

// NewGormTransactor creates a new GormTransactor.
func NewGormTransactor(db *gorm.DB) *GormTransactor {
	return &GormTransactor{db: db}
}

// WithinTransaction runs fn in a transaction, committing when fn returns nil.
// A call made with a context that already carries a transaction runs fn
// inside that transaction.
func (t *GormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	var fnErr error
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(context.WithValue(ctx, txKey{}, tx))
		return fnErr
	})
	if err != nil && fnErr == nil {
		return apperror.NewStorageError("commit transaction", err)
	}
	return err
}

// conn returns the transaction carried by ctx, or db bound to ctx.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// AutoMigrate creates or updates every table this service owns. It is only
// used in development; other environments apply the SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&RestaurantModel{}, &PromoCodeModel{}, &PromoUsageModel{})
}

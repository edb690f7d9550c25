package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazaarline/storefront-backend/pkg/db/models"
	pkgerrors "github.com/bazaarline/storefront-backend/pkg/errors"
)

// ErrInsufficientStock marks decrement failures caused by the stock guard,
// so callers can tell oversell apart from other conflicts.
var ErrInsufficientStock = errors.New("insufficient stock")

// Repository mutates stock levels. Decrement and Restore are atomic
// conditional updates; callers run them inside the order unit of work.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, productID uuid.UUID) (*models.StockLevel, error)
	// Decrement subtracts qty where sufficient stock exists. Returns a
	// conflict error when the conditional update matches no row.
	Decrement(ctx context.Context, productID uuid.UUID, qty int) error
	// Restore adds qty back to a product's stock. Missing rows are created
	// so compensation never fails on a product whose level row was removed.
	Restore(ctx context.Context, productID uuid.UUID, qty int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a stock repository backed by the provided DB handle.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Get(ctx context.Context, productID uuid.UUID) (*models.StockLevel, error) {
	var level models.StockLevel
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		First(&level).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no stock record for product %s", productID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock level")
	}
	return &level, nil
}

func (r *repository) Decrement(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := r.db.WithContext(ctx).Exec(`
		UPDATE stock_levels
		SET quantity = quantity - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND quantity >= ?
	`, qty, productID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, ErrInsufficientStock, fmt.Sprintf("insufficient stock for product %s", productID))
	}
	return nil
}

func (r *repository) Restore(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Exec(`
		UPDATE stock_levels
		SET quantity = quantity + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ?
	`, qty, productID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restore stock")
	}
	if res.RowsAffected == 0 {
		level := models.StockLevel{ProductID: productID, Quantity: qty}
		if err := r.db.WithContext(ctx).Create(&level).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recreate stock level")
		}
	}
	return nil
}

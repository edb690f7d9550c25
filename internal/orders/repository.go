package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bazaarline/storefront-backend/pkg/db/models"
	"github.com/bazaarline/storefront-backend/pkg/enums"
	pkgerrors "github.com/bazaarline/storefront-backend/pkg/errors"
	"github.com/bazaarline/storefront-backend/pkg/pagination"
)

// Repository persists orders and their child rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	CreateLineItems(ctx context.Context, items []models.OrderLineItem) error
	CreateFeeBreakdown(ctx context.Context, fees *models.FeeBreakdown) error
	AppendHistory(ctx context.Context, entry *models.StatusHistoryEntry) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	// FindDetailed loads the order with items, fees, payment and history.
	FindDetailed(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindLineItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderLineItem, error)
	ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	UpdateFields(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	// ResolvePendingPayment flips payment_status away from pending with a
	// conditional update. Optional statuses narrow the guard further, so a
	// callback cannot move an order that already left those statuses. The
	// bool reports whether the guard matched; false means another caller
	// already resolved the payment or the order moved on.
	ResolvePendingPayment(ctx context.Context, orderID uuid.UUID, updates map[string]any, statuses ...enums.OrderStatus) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order repository backed by the provided DB handle.
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

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	// Child rows are inserted explicitly inside the same unit of work.
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) CreateLineItems(ctx context.Context, items []models.OrderLineItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) CreateFeeBreakdown(ctx context.Context, fees *models.FeeBreakdown) error {
	return r.db.WithContext(ctx).Create(fees).Error
}

func (r *repository) AppendHistory(ctx context.Context, entry *models.StatusHistoryEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return &order, nil
}

func (r *repository) FindDetailed(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Fees").
		Preload("Payment").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order details")
	}
	return &order, nil
}

func (r *repository) FindLineItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderLineItem, error) {
	var items []models.OrderLineItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Find(&items).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order line items")
	}
	return items, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	qb := r.db.WithContext(ctx).
		Where("user_id = ?", userID)

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var orders []models.Order
	err := qb.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&orders).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

func (r *repository) UpdateFields(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
	return nil
}

func (r *repository) ResolvePendingPayment(ctx context.Context, orderID uuid.UUID, updates map[string]any, statuses ...enums.OrderStatus) (bool, error) {
	qb := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, enums.PaymentStatePending)
	if len(statuses) > 0 {
		qb = qb.Where("status IN ?", statuses)
	}
	res := qb.Updates(updates)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "resolve payment state")
	}
	return res.RowsAffected > 0, nil
}

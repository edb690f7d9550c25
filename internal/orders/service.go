package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazaarline/storefront-backend/pkg/db/models"
	"github.com/bazaarline/storefront-backend/pkg/enums"
	pkgerrors "github.com/bazaarline/storefront-backend/pkg/errors"
	"github.com/bazaarline/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type statusNotifier interface {
	NotifyStatusChanged(ctx context.Context, order *models.Order)
}

// validStatusEdges is the admin-driven transition graph. Payment callbacks
// drive pending->confirmed and ->cancelled through their own paths.
var validStatusEdges = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed:  {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered},
}

func canTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range validStatusEdges[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// SetStatusInput captures an admin-initiated status transition.
type SetStatusInput struct {
	OrderID   uuid.UUID
	NewStatus enums.OrderStatus
	Note      *string
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// ListInput captures the paging inputs for a user's order history.
type ListInput struct {
	UserID     uuid.UUID
	Pagination pagination.Params
}

// ListResult is one page of orders plus the cursor for the next page.
type ListResult struct {
	Orders     []models.Order
	NextCursor string
}

// Service exposes order reads and the status transition driver.
type Service interface {
	GetDetails(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	SetStatus(ctx context.Context, input SetStatusInput) error
}

type service struct {
	repo     Repository
	tx       txRunner
	notifier statusNotifier
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, notifier statusNotifier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("status notifier required")
	}
	return &service{repo: repo, tx: tx, notifier: notifier}, nil
}

func (s *service) GetDetails(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	order, err := s.repo.FindDetailed(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// Absence and foreign ownership look the same to the caller.
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(input.Pagination.Limit)
	rows, err := s.repo.ListByUser(ctx, input.UserID, cursor, pagination.LimitWithBuffer(input.Pagination.Limit))
	if err != nil {
		return nil, err
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &ListResult{Orders: rows, NextCursor: next}, nil
}

func (s *service) SetStatus(ctx context.Context, input SetStatusInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.NewStatus.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}
	if input.ActorRole == "" {
		input.ActorRole = enums.ActorRoleSystem
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if !canTransition(order.Status, input.NewStatus) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot transition order from %s to %s", order.Status, input.NewStatus))
		}

		now := time.Now().UTC()
		updates := map[string]any{"status": input.NewStatus}
		switch input.NewStatus {
		case enums.OrderStatusShipped:
			if order.ShippedAt == nil {
				updates["shipped_at"] = now
			}
		case enums.OrderStatusDelivered:
			if order.DeliveredAt == nil {
				updates["delivered_at"] = now
			}
		case enums.OrderStatusCancelled:
			if order.CancelledAt == nil {
				updates["cancelled_at"] = now
			}
		}

		if err := repo.UpdateFields(ctx, order.ID, updates); err != nil {
			return err
		}

		entry := models.StatusHistoryEntry{
			ID:        uuid.New(),
			OrderID:   order.ID,
			Status:    input.NewStatus,
			Note:      input.Note,
			ActorRole: input.ActorRole,
		}
		if input.ActorID != uuid.Nil {
			actor := input.ActorID
			entry.ActorID = &actor
		}
		if err := repo.AppendHistory(ctx, &entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}

		order.Status = input.NewStatus
		updated = order
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.NotifyStatusChanged(ctx, updated)
	return nil
}

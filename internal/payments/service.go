package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazaarline/storefront-backend/internal/giftcards"
	"github.com/bazaarline/storefront-backend/internal/inventory"
	"github.com/bazaarline/storefront-backend/internal/orders"
	"github.com/bazaarline/storefront-backend/pkg/db/models"
	"github.com/bazaarline/storefront-backend/pkg/enums"
	pkgerrors "github.com/bazaarline/storefront-backend/pkg/errors"
	"github.com/bazaarline/storefront-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type statusNotifier interface {
	NotifyStatusChanged(ctx context.Context, order *models.Order)
}

// ConfirmInput carries a successful gateway callback.
type ConfirmInput struct {
	OrderID         uuid.UUID
	UserID          uuid.UUID
	GatewayTxnID    string
	GatewayResponse json.RawMessage
}

// FailInput carries a failed gateway callback.
type FailInput struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
	Reason  string
}

// Service drives the payment state machine: pending resolves exactly once to
// success or failed, and failure compensates stock and gift-card debits.
type Service interface {
	Confirm(ctx context.Context, input ConfirmInput) error
	Fail(ctx context.Context, input FailInput) error
}

type service struct {
	ordersRepo   orders.Repository
	paymentsRepo Repository
	stock        inventory.Repository
	cards        giftcards.Repository
	tx           txRunner
	notifier     statusNotifier
	metrics      *metrics.CheckoutMetrics
}

// ServiceParams groups dependencies for the payment service.
type ServiceParams struct {
	Orders    orders.Repository
	Payments  Repository
	Stock     inventory.Repository
	GiftCards giftcards.Repository
	Tx        txRunner
	Notifier  statusNotifier
	Metrics   *metrics.CheckoutMetrics
}

// NewService builds the payment lifecycle service.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if params.GiftCards == nil {
		return nil, fmt.Errorf("gift card repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("status notifier required")
	}
	return &service{
		ordersRepo:   params.Orders,
		paymentsRepo: params.Payments,
		stock:        params.Stock,
		cards:        params.GiftCards,
		tx:           params.Tx,
		notifier:     params.Notifier,
		metrics:      params.Metrics,
	}, nil
}

func (s *service) Confirm(ctx context.Context, input ConfirmInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.GatewayTxnID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway transaction id required")
	}

	var confirmed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)
		paymentsRepo := s.paymentsRepo.WithTx(tx)

		order, err := ordersRepo.FindByID(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if input.UserID != uuid.Nil && order.UserID != input.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}

		now := time.Now().UTC()

		// The pending guards are the idempotency barrier: a second confirm,
		// or a late one arriving after the order was cancelled, matches zero
		// rows and surfaces as a state conflict.
		moved, err := ordersRepo.ResolvePendingPayment(ctx, order.ID, map[string]any{
			"payment_status": enums.PaymentStatePaid,
			"status":         enums.OrderStatusConfirmed,
		}, enums.OrderStatusPending)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
		}

		txnUpdates := map[string]any{
			"status":         enums.TxnStatusSuccess,
			"gateway_txn_id": input.GatewayTxnID,
			"resolved_at":    now,
		}
		if len(input.GatewayResponse) > 0 {
			txnUpdates["gateway_response"] = []byte(input.GatewayResponse)
		}
		moved, err = paymentsRepo.ResolvePending(ctx, order.ID, txnUpdates)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment transaction already resolved")
		}

		note := "payment confirmed"
		if err := ordersRepo.AppendHistory(ctx, &models.StatusHistoryEntry{
			ID:        uuid.New(),
			OrderID:   order.ID,
			Status:    enums.OrderStatusConfirmed,
			Note:      &note,
			ActorRole: enums.ActorRoleGateway,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}

		order.Status = enums.OrderStatusConfirmed
		order.PaymentState = enums.PaymentStatePaid
		confirmed = order
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.IncPaymentResolution("success")
	s.notifier.NotifyStatusChanged(ctx, confirmed)
	return nil
}

func (s *service) Fail(ctx context.Context, input FailInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Reason == "" {
		input.Reason = "payment failed"
	}

	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)
		paymentsRepo := s.paymentsRepo.WithTx(tx)
		stockRepo := s.stock.WithTx(tx)
		cardsRepo := s.cards.WithTx(tx)

		order, err := ordersRepo.FindByID(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if input.UserID != uuid.Nil && order.UserID != input.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}

		now := time.Now().UTC()

		// Compensation runs only on the pending->failed transition, so a
		// replayed failure callback cannot double-credit stock.
		updates := map[string]any{
			"payment_status": enums.PaymentStateFailed,
			"status":         enums.OrderStatusCancelled,
		}
		if order.CancelledAt == nil {
			updates["cancelled_at"] = now
		}
		moved, err := ordersRepo.ResolvePendingPayment(ctx, order.ID, updates)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already resolved")
		}

		moved, err = paymentsRepo.ResolvePending(ctx, order.ID, map[string]any{
			"status":         enums.TxnStatusFailed,
			"failure_reason": input.Reason,
			"resolved_at":    now,
		})
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment transaction already resolved")
		}

		items, err := ordersRepo.FindLineItems(ctx, order.ID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := stockRepo.Restore(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		if order.GiftCardCode != nil && order.GiftCardDebit.IsPositive() {
			if err := cardsRepo.Credit(ctx, *order.GiftCardCode, order.GiftCardDebit); err != nil {
				return err
			}
		}

		note := "payment failed: " + input.Reason
		if err := ordersRepo.AppendHistory(ctx, &models.StatusHistoryEntry{
			ID:        uuid.New(),
			OrderID:   order.ID,
			Status:    enums.OrderStatusCancelled,
			Note:      &note,
			ActorRole: enums.ActorRoleGateway,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}

		order.Status = enums.OrderStatusCancelled
		order.PaymentState = enums.PaymentStateFailed
		cancelled = order
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.IncPaymentResolution("failed")
	s.notifier.NotifyStatusChanged(ctx, cancelled)
	return nil
}

package checkout

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazaarline/storefront-backend/internal/addresses"
	"github.com/bazaarline/storefront-backend/internal/catalog"
	"github.com/bazaarline/storefront-backend/internal/fees"
	"github.com/bazaarline/storefront-backend/internal/giftcards"
	"github.com/bazaarline/storefront-backend/internal/inventory"
	"github.com/bazaarline/storefront-backend/internal/orders"
	"github.com/bazaarline/storefront-backend/internal/paymentmethods"
	"github.com/bazaarline/storefront-backend/internal/payments"
	"github.com/bazaarline/storefront-backend/pkg/db"
	"github.com/bazaarline/storefront-backend/pkg/db/models"
	"github.com/bazaarline/storefront-backend/pkg/enums"
	pkgerrors "github.com/bazaarline/storefront-backend/pkg/errors"
	"github.com/bazaarline/storefront-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderNotifier interface {
	NotifyOrderPlaced(ctx context.Context, order *models.Order)
}

// LineItemInput is one cart entry as submitted by the client. UnitPrice is
// the price the client saw; it is verified against the catalog inside the
// order transaction and the request is rejected on any mismatch.
type LineItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// QuoteInput prices a cart without creating anything.
type QuoteInput struct {
	Items        []LineItemInput
	GiftCardCode *string
}

// CreateOrderInput carries everything needed to place an order.
type CreateOrderInput struct {
	UserID            uuid.UUID
	ShippingAddressID uuid.UUID
	BillingAddressID  *uuid.UUID
	PaymentMethodID   uuid.UUID
	Items             []LineItemInput
	GiftCardCode      *string
	Note              *string
}

// CreateOrderResult is the caller-facing outcome of a successful checkout.
type CreateOrderResult struct {
	OrderID       uuid.UUID
	OrderNumber   string
	Total         decimal.Decimal
	PaymentStatus enums.PaymentState
	PaymentType   enums.PaymentMethodKind
}

// Service is the transaction coordinator: the only place that opens the
// order-creation unit of work.
type Service interface {
	Quote(ctx context.Context, input QuoteInput) (*fees.Breakdown, error)
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	Orders     orders.Repository
	Payments   payments.Repository
	Stock      inventory.Repository
	GiftCards  giftcards.Repository
	Catalog    catalog.Repository
	Addresses  addresses.Repository
	Methods    paymentmethods.Repository
	Calculator *fees.Calculator
	Tx         txRunner
	Notifier   orderNotifier
	Metrics    *metrics.CheckoutMetrics
}

type service struct {
	ordersRepo   orders.Repository
	paymentsRepo payments.Repository
	stock        inventory.Repository
	cards        giftcards.Repository
	catalog      catalog.Repository
	addresses    addresses.Repository
	methods      paymentmethods.Repository
	calculator   *fees.Calculator
	tx           txRunner
	notifier     orderNotifier
	metrics      *metrics.CheckoutMetrics
}

// NewService builds the checkout coordinator.
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
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Addresses == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if params.Methods == nil {
		return nil, fmt.Errorf("payment method loader required")
	}
	if params.Calculator == nil {
		return nil, fmt.Errorf("fee calculator required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("order notifier required")
	}
	return &service{
		ordersRepo:   params.Orders,
		paymentsRepo: params.Payments,
		stock:        params.Stock,
		cards:        params.GiftCards,
		catalog:      params.Catalog,
		addresses:    params.Addresses,
		methods:      params.Methods,
		calculator:   params.Calculator,
		tx:           params.Tx,
		notifier:     params.Notifier,
		metrics:      params.Metrics,
	}, nil
}

// pricedItem pairs the client input with the catalog snapshot used for the
// order's immutable line-item copy.
type pricedItem struct {
	input   LineItemInput
	product models.Product
}

// priceItems re-prices every line item from the catalog and rejects requests
// whose client-side prices disagree with the current catalog.
func (s *service) priceItems(ctx context.Context, repo catalog.Repository, items []LineItemInput, verifyClientPrice bool) ([]pricedItem, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required on every line item")
		}
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item quantity must be at least 1")
		}
		ids = append(ids, item.ProductID)
	}

	byID, err := repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	priced := make([]pricedItem, 0, len(items))
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", item.ProductID))
		}
		if !product.Active {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("product %s is no longer available", product.SKU))
		}
		if verifyClientPrice && !item.UnitPrice.Equal(product.Price) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("price changed for product %s: expected %s", product.SKU, product.Price))
		}
		priced = append(priced, pricedItem{input: item, product: product})
	}
	return priced, nil
}

func feeItems(priced []pricedItem) []fees.LineItem {
	out := make([]fees.LineItem, 0, len(priced))
	for _, p := range priced {
		out = append(out, fees.LineItem{UnitPrice: p.product.Price, Quantity: p.input.Quantity})
	}
	return out
}

// Quote prices a cart against the current catalog without reserving anything.
// Client prices are ignored here; the quote is the authoritative price.
func (s *service) Quote(ctx context.Context, input QuoteInput) (*fees.Breakdown, error) {
	priced, err := s.priceItems(ctx, s.catalog, input.Items, false)
	if err != nil {
		return nil, err
	}

	balance := decimal.Zero
	if input.GiftCardCode != nil && *input.GiftCardCode != "" {
		card, err := s.cards.FindRedeemable(ctx, *input.GiftCardCode, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		balance = card.Balance
	}

	breakdown, err := s.calculator.Calculate(feeItems(priced), balance)
	if err != nil {
		return nil, err
	}
	return &breakdown, nil
}

// newOrderNumber builds a human-referenceable order number. The unique index
// on orders.order_number is the real collision guarantee; CreateOrder retries
// once on a violation.
func newOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%04d", now.UTC().Format("20060102150405"), rand.IntN(10000))
}

func newGatewayTxnID() string {
	return "txn_" + uuid.NewString()
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ShippingAddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address id required")
	}
	if input.PaymentMethodID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method id required")
	}

	result, err := s.createOrderOnce(ctx, input)
	if err != nil && db.IsUniqueViolation(err, "order_number") {
		// Order-number collision: regenerate and retry once before giving up.
		result, err = s.createOrderOnce(ctx, input)
	}
	if err != nil {
		if errors.Is(err, inventory.ErrInsufficientStock) {
			s.metrics.IncOversellConflict()
		}
		return nil, err
	}

	s.metrics.IncOrdersCreated()
	return result, nil
}

func (s *service) createOrderOnce(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	var result *CreateOrderResult
	var placed *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)
		paymentsRepo := s.paymentsRepo.WithTx(tx)
		stockRepo := s.stock.WithTx(tx)
		cardsRepo := s.cards.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)
		addressRepo := s.addresses.WithTx(tx)
		methods := s.methods.WithTx(tx)

		now := time.Now().UTC()

		if _, err := addressRepo.GetOwned(ctx, input.ShippingAddressID, input.UserID); err != nil {
			return err
		}
		if input.BillingAddressID != nil {
			if _, err := addressRepo.GetOwned(ctx, *input.BillingAddressID, input.UserID); err != nil {
				return err
			}
		}

		method, err := methods.GetActive(ctx, input.PaymentMethodID)
		if err != nil {
			return err
		}

		priced, err := s.priceItems(ctx, catalogRepo, input.Items, true)
		if err != nil {
			return err
		}

		balance := decimal.Zero
		var cardCode *string
		if input.GiftCardCode != nil && *input.GiftCardCode != "" {
			card, err := cardsRepo.FindRedeemable(ctx, *input.GiftCardCode, now)
			if err != nil {
				return err
			}
			balance = card.Balance
			code := card.Code
			cardCode = &code
		}

		breakdown, err := s.calculator.Calculate(feeItems(priced), balance)
		if err != nil {
			return err
		}

		paymentState := enums.PaymentStatePending
		if method.Kind == enums.PaymentMethodKindOffline {
			paymentState = enums.PaymentStateCOD
		}

		order := &models.Order{
			ID:                uuid.New(),
			OrderNumber:       newOrderNumber(now),
			UserID:            input.UserID,
			Status:            enums.OrderStatusPending,
			PaymentState:      paymentState,
			Subtotal:          breakdown.Subtotal,
			DeliveryCharge:    breakdown.DeliveryCharge,
			MarketplaceFee:    breakdown.MarketplaceFee,
			TaxAmount:         breakdown.TaxAmount,
			GiftCardDebit:     breakdown.GiftCardDebit,
			Total:             breakdown.Total,
			ShippingAddressID: input.ShippingAddressID,
			BillingAddressID:  input.BillingAddressID,
			PaymentMethodID:   method.ID,
			Notes:             input.Note,
		}
		if breakdown.GiftCardDebit.IsPositive() {
			order.GiftCardCode = cardCode
		}
		if err := ordersRepo.Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "order_number") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number collision")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		items := make([]models.OrderLineItem, 0, len(priced))
		for _, p := range priced {
			items = append(items, models.OrderLineItem{
				ID:        uuid.New(),
				OrderID:   order.ID,
				ProductID: p.product.ID,
				Name:      p.product.Name,
				SKU:       p.product.SKU,
				UnitPrice: p.product.Price,
				Quantity:  p.input.Quantity,
				LineTotal: fees.LineTotal(p.product.Price, p.input.Quantity),
			})
			if err := stockRepo.Decrement(ctx, p.product.ID, p.input.Quantity); err != nil {
				return err
			}
		}
		if err := ordersRepo.CreateLineItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create line items")
		}

		if err := ordersRepo.CreateFeeBreakdown(ctx, &models.FeeBreakdown{
			ID:             uuid.New(),
			OrderID:        order.ID,
			Subtotal:       breakdown.Subtotal,
			DeliveryCharge: breakdown.DeliveryCharge,
			MarketplaceFee: breakdown.MarketplaceFee,
			TaxAmount:      breakdown.TaxAmount,
			GiftCardDebit:  breakdown.GiftCardDebit,
			Total:          breakdown.Total,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create fee breakdown")
		}

		if breakdown.GiftCardDebit.IsPositive() {
			if err := cardsRepo.Debit(ctx, *cardCode, breakdown.GiftCardDebit, now); err != nil {
				return err
			}
		}

		if method.Kind == enums.PaymentMethodKindOnline {
			if err := paymentsRepo.Create(ctx, &models.PaymentTransaction{
				ID:           uuid.New(),
				OrderID:      order.ID,
				GatewayTxnID: newGatewayTxnID(),
				Amount:       breakdown.Total,
				Status:       enums.TxnStatusPending,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment transaction")
			}
		}

		note := "order placed"
		if err := ordersRepo.AppendHistory(ctx, &models.StatusHistoryEntry{
			ID:        uuid.New(),
			OrderID:   order.ID,
			Status:    enums.OrderStatusPending,
			Note:      &note,
			ActorID:   &input.UserID,
			ActorRole: enums.ActorRoleCustomer,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}

		placed = order
		result = &CreateOrderResult{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			Total:         breakdown.Total,
			PaymentStatus: paymentState,
			PaymentType:   method.Kind,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyOrderPlaced(ctx, placed)
	return result, nil
}

package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazaarline/storefront-backend/api/responses"
	"github.com/bazaarline/storefront-backend/api/validators"
	ordersvc "github.com/bazaarline/storefront-backend/internal/orders"
	"github.com/bazaarline/storefront-backend/pkg/db/models"
	pkgerrors "github.com/bazaarline/storefront-backend/pkg/errors"
	"github.com/bazaarline/storefront-backend/pkg/logger"
	"github.com/bazaarline/storefront-backend/pkg/pagination"
)

type orderSummaryResponse struct {
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
}

type listOrdersResponse struct {
	Orders     []orderSummaryResponse `json:"orders"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

type orderLineItemResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type feeBreakdownResponse struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	MarketplaceFee decimal.Decimal `json:"marketplace_fee"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	GiftCardDebit  decimal.Decimal `json:"gift_card_debit"`
	Total          decimal.Decimal `json:"total"`
}

type paymentResponse struct {
	GatewayTxnID  string          `json:"gateway_txn_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	FailureReason *string         `json:"failure_reason,omitempty"`
	ResolvedAt    *time.Time      `json:"resolved_at,omitempty"`
}

type historyEntryResponse struct {
	Status    string     `json:"status"`
	Note      *string    `json:"note,omitempty"`
	ActorID   *uuid.UUID `json:"actor_id,omitempty"`
	ActorRole string     `json:"actor_role"`
	CreatedAt time.Time  `json:"created_at"`
}

type orderDetailResponse struct {
	OrderID       uuid.UUID               `json:"order_id"`
	OrderNumber   string                  `json:"order_number"`
	Status        string                  `json:"status"`
	PaymentStatus string                  `json:"payment_status"`
	GiftCardCode  *string                 `json:"gift_card_code,omitempty"`
	Notes         *string                 `json:"notes,omitempty"`
	Items         []orderLineItemResponse `json:"items"`
	Fees          *feeBreakdownResponse   `json:"fees,omitempty"`
	Payment       *paymentResponse        `json:"payment,omitempty"`
	History       []historyEntryResponse  `json:"history"`
	ShippedAt     *time.Time              `json:"shipped_at,omitempty"`
	DeliveredAt   *time.Time              `json:"delivered_at,omitempty"`
	CancelledAt   *time.Time              `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
}

// OrdersList returns one page of the caller's order history, newest first.
func OrdersList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		page, err := svc.List(r.Context(), ordersvc.ListInput{
			UserID: userID,
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: cursor,
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := listOrdersResponse{
			Orders:     make([]orderSummaryResponse, 0, len(page.Orders)),
			NextCursor: page.NextCursor,
		}
		for _, order := range page.Orders {
			out.Orders = append(out.Orders, orderSummaryResponse{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				Status:        order.Status.String(),
				PaymentStatus: order.PaymentState.String(),
				Total:         order.Total,
				CreatedAt:     order.CreatedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

// OrdersDetail returns the full aggregate for one of the caller's orders.
func OrdersDetail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetDetails(r.Context(), orderID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderDetailResponse(order))
	}
}

func newOrderDetailResponse(order *models.Order) orderDetailResponse {
	if order == nil {
		return orderDetailResponse{}
	}
	out := orderDetailResponse{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status.String(),
		PaymentStatus: order.PaymentState.String(),
		GiftCardCode:  order.GiftCardCode,
		Notes:         order.Notes,
		Items:         make([]orderLineItemResponse, 0, len(order.Items)),
		History:       make([]historyEntryResponse, 0, len(order.History)),
		ShippedAt:     order.ShippedAt,
		DeliveredAt:   order.DeliveredAt,
		CancelledAt:   order.CancelledAt,
		CreatedAt:     order.CreatedAt,
	}
	for _, item := range order.Items {
		out.Items = append(out.Items, orderLineItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			SKU:       item.SKU,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		})
	}
	if order.Fees != nil {
		out.Fees = &feeBreakdownResponse{
			Subtotal:       order.Fees.Subtotal,
			DeliveryCharge: order.Fees.DeliveryCharge,
			MarketplaceFee: order.Fees.MarketplaceFee,
			TaxAmount:      order.Fees.TaxAmount,
			GiftCardDebit:  order.Fees.GiftCardDebit,
			Total:          order.Fees.Total,
		}
	}
	if order.Payment != nil {
		out.Payment = &paymentResponse{
			GatewayTxnID:  order.Payment.GatewayTxnID,
			Amount:        order.Payment.Amount,
			Status:        order.Payment.Status.String(),
			FailureReason: order.Payment.FailureReason,
			ResolvedAt:    order.Payment.ResolvedAt,
		}
	}
	for _, entry := range order.History {
		out.History = append(out.History, historyEntryResponse{
			Status:    entry.Status.String(),
			Note:      entry.Note,
			ActorID:   entry.ActorID,
			ActorRole: entry.ActorRole.String(),
			CreatedAt: entry.CreatedAt,
		})
	}
	return out
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

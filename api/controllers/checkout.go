package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazaarline/storefront-backend/api/middleware"
	"github.com/bazaarline/storefront-backend/api/responses"
	"github.com/bazaarline/storefront-backend/api/validators"
	checkoutsvc "github.com/bazaarline/storefront-backend/internal/checkout"
	pkgerrors "github.com/bazaarline/storefront-backend/pkg/errors"
	"github.com/bazaarline/storefront-backend/pkg/logger"
)

type checkoutItemRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required,uuid4"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type checkoutRequest struct {
	ShippingAddressID uuid.UUID             `json:"shipping_address_id" validate:"required,uuid4"`
	BillingAddressID  *uuid.UUID            `json:"billing_address_id,omitempty" validate:"omitempty,uuid4"`
	PaymentMethodID   uuid.UUID             `json:"payment_method_id" validate:"required,uuid4"`
	Items             []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
	GiftCardCode      *string               `json:"gift_card_code,omitempty" validate:"omitempty,min=1"`
	Note              *string               `json:"note,omitempty" validate:"omitempty,max=500"`
}

type quoteRequest struct {
	Items        []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
	GiftCardCode *string               `json:"gift_card_code,omitempty" validate:"omitempty,min=1"`
}

type checkoutResponse struct {
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	Total         decimal.Decimal `json:"total"`
	PaymentStatus string          `json:"payment_status"`
	PaymentType   string          `json:"payment_type"`
}

// Checkout places an order from the submitted cart.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateOrder(r.Context(), checkoutsvc.CreateOrderInput{
			UserID:            userID,
			ShippingAddressID: payload.ShippingAddressID,
			BillingAddressID:  payload.BillingAddressID,
			PaymentMethodID:   payload.PaymentMethodID,
			Items:             toLineItemInputs(payload.Items),
			GiftCardCode:      payload.GiftCardCode,
			Note:              payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			OrderID:       result.OrderID,
			OrderNumber:   result.OrderNumber,
			Total:         result.Total,
			PaymentStatus: result.PaymentStatus.String(),
			PaymentType:   result.PaymentType.String(),
		})
	}
}

// CheckoutQuote prices a cart without creating anything.
func CheckoutQuote(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		if _, err := userIDFromContext(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		breakdown, err := svc.Quote(r.Context(), checkoutsvc.QuoteInput{
			Items:        toLineItemInputs(payload.Items),
			GiftCardCode: payload.GiftCardCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, breakdown)
	}
}

func toLineItemInputs(items []checkoutItemRequest) []checkoutsvc.LineItemInput {
	out := make([]checkoutsvc.LineItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, checkoutsvc.LineItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return out
}

func userIDFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user identity")
	}
	return userID, nil
}

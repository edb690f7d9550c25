package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/bazaarline/storefront-backend/api/responses"
	"github.com/bazaarline/storefront-backend/api/validators"
	paymentsvc "github.com/bazaarline/storefront-backend/internal/payments"
	pkgerrors "github.com/bazaarline/storefront-backend/pkg/errors"
	"github.com/bazaarline/storefront-backend/pkg/logger"
)

type paymentConfirmRequest struct {
	GatewayTxnID    string          `json:"gateway_txn_id" validate:"required,min=1"`
	GatewayResponse json.RawMessage `json:"gateway_response,omitempty"`
}

type paymentFailRequest struct {
	Reason string `json:"reason" validate:"required,min=1"`
}

type paymentResolutionResponse struct {
	OrderID       uuid.UUID `json:"order_id"`
	PaymentStatus string    `json:"payment_status"`
}

// PaymentConfirm applies a successful gateway callback to a pending payment.
func PaymentConfirm(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
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

		var payload paymentConfirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Confirm(r.Context(), paymentsvc.ConfirmInput{
			OrderID:         orderID,
			UserID:          userID,
			GatewayTxnID:    payload.GatewayTxnID,
			GatewayResponse: payload.GatewayResponse,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, paymentResolutionResponse{
			OrderID:       orderID,
			PaymentStatus: "success",
		})
	}
}

// PaymentFail applies a failed gateway callback, releasing stock and any
// gift-card debit back to their sources.
func PaymentFail(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
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

		var payload paymentFailRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Fail(r.Context(), paymentsvc.FailInput{
			OrderID: orderID,
			UserID:  userID,
			Reason:  payload.Reason,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, paymentResolutionResponse{
			OrderID:       orderID,
			PaymentStatus: "failed",
		})
	}
}

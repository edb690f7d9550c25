package controllers

import (
	"net/http"

	"github.com/bazaarline/storefront-backend/api/responses"
	"github.com/bazaarline/storefront-backend/api/validators"
	ordersvc "github.com/bazaarline/storefront-backend/internal/orders"
	"github.com/bazaarline/storefront-backend/pkg/enums"
	pkgerrors "github.com/bazaarline/storefront-backend/pkg/errors"
	"github.com/bazaarline/storefront-backend/pkg/logger"
)

type setOrderStatusRequest struct {
	Status string  `json:"status" validate:"required,min=1"`
	Note   *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

type setOrderStatusResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// AdminSetOrderStatus drives an order along the fulfillment transition graph.
func AdminSetOrderStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		if err := svc.SetStatus(r.Context(), ordersvc.SetStatusInput{
			OrderID:   orderID,
			NewStatus: status,
			Note:      payload.Note,
			ActorID:   actorID,
			ActorRole: enums.ActorRoleAdmin,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, setOrderStatusResponse{
			OrderID: orderID.String(),
			Status:  status.String(),
		})
	}
}

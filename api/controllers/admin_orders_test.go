package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	ordersvc "github.com/bazaarline/storefront-backend/internal/orders"
	"github.com/bazaarline/storefront-backend/pkg/enums"
	pkgerrors "github.com/bazaarline/storefront-backend/pkg/errors"
)

func TestAdminSetOrderStatus(t *testing.T) {
	actorID := uuid.New()
	orderID := uuid.New()

	svc := stubOrdersService{
		setStatusFn: func(ctx context.Context, input ordersvc.SetStatusInput) error {
			if input.OrderID != orderID || input.ActorID != actorID {
				t.Fatalf("unexpected ids %+v", input)
			}
			if input.NewStatus != enums.OrderStatusConfirmed {
				t.Fatalf("unexpected status %s", input.NewStatus)
			}
			if input.ActorRole != enums.ActorRoleAdmin {
				t.Fatalf("unexpected role %s", input.ActorRole)
			}
			return nil
		},
	}

	body := `{"status": "confirmed", "note": "manual confirmation"}`
	req := withOrderID(withUser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), actorID), orderID)
	resp := httptest.NewRecorder()
	AdminSetOrderStatus(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestAdminSetOrderStatusRejectsUnknownStatus(t *testing.T) {
	called := false
	svc := stubOrdersService{
		setStatusFn: func(ctx context.Context, input ordersvc.SetStatusInput) error {
			called = true
			return nil
		},
	}

	body := `{"status": "teleported"}`
	req := withOrderID(withUser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), uuid.New()), uuid.New())
	resp := httptest.NewRecorder()
	AdminSetOrderStatus(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", resp.Code, resp.Body.String())
	}
	if called {
		t.Fatal("service should not be called with an unknown status")
	}
}

func TestAdminSetOrderStatusMapsStateConflict(t *testing.T) {
	svc := stubOrdersService{
		setStatusFn: func(ctx context.Context, input ordersvc.SetStatusInput) error {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "invalid transition")
		},
	}

	body := `{"status": "delivered"}`
	req := withOrderID(withUser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), uuid.New()), uuid.New())
	resp := httptest.NewRecorder()
	AdminSetOrderStatus(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d body=%s", resp.Code, resp.Body.String())
	}
}

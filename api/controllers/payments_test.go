package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	paymentsvc "github.com/bazaarline/storefront-backend/internal/payments"
	pkgerrors "github.com/bazaarline/storefront-backend/pkg/errors"
)

type stubPaymentsService struct {
	confirmFn func(ctx context.Context, input paymentsvc.ConfirmInput) error
	failFn    func(ctx context.Context, input paymentsvc.FailInput) error
}

func (s stubPaymentsService) Confirm(ctx context.Context, input paymentsvc.ConfirmInput) error {
	if s.confirmFn != nil {
		return s.confirmFn(ctx, input)
	}
	return nil
}

func (s stubPaymentsService) Fail(ctx context.Context, input paymentsvc.FailInput) error {
	if s.failFn != nil {
		return s.failFn(ctx, input)
	}
	return nil
}

func TestPaymentConfirmPassesCallback(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()

	svc := stubPaymentsService{
		confirmFn: func(ctx context.Context, input paymentsvc.ConfirmInput) error {
			if input.OrderID != orderID || input.UserID != userID {
				t.Fatalf("unexpected ids %+v", input)
			}
			if input.GatewayTxnID != "gw-123" {
				t.Fatalf("unexpected txn id %q", input.GatewayTxnID)
			}
			if string(input.GatewayResponse) != `{"code":"approved"}` {
				t.Fatalf("unexpected gateway response %s", input.GatewayResponse)
			}
			return nil
		},
	}

	body := `{"gateway_txn_id": "gw-123", "gateway_response": {"code":"approved"}}`
	req := withOrderID(withUser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), userID), orderID)
	resp := httptest.NewRecorder()
	PaymentConfirm(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestPaymentConfirmMapsStateConflict(t *testing.T) {
	svc := stubPaymentsService{
		confirmFn: func(ctx context.Context, input paymentsvc.ConfirmInput) error {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already resolved")
		},
	}

	body := `{"gateway_txn_id": "gw-123"}`
	req := withOrderID(withUser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), uuid.New()), uuid.New())
	resp := httptest.NewRecorder()
	PaymentConfirm(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestPaymentFailRequiresReason(t *testing.T) {
	called := false
	svc := stubPaymentsService{
		failFn: func(ctx context.Context, input paymentsvc.FailInput) error {
			called = true
			return nil
		},
	}

	req := withOrderID(withUser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)), uuid.New()), uuid.New())
	resp := httptest.NewRecorder()
	PaymentFail(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", resp.Code, resp.Body.String())
	}
	if called {
		t.Fatal("service should not be called without a reason")
	}
}

func TestPaymentFailPassesReason(t *testing.T) {
	orderID := uuid.New()
	svc := stubPaymentsService{
		failFn: func(ctx context.Context, input paymentsvc.FailInput) error {
			if input.Reason != "card declined" {
				t.Fatalf("unexpected reason %q", input.Reason)
			}
			return nil
		},
	}

	body := `{"reason": "card declined"}`
	req := withOrderID(withUser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), uuid.New()), orderID)
	resp := httptest.NewRecorder()
	PaymentFail(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", resp.Code, resp.Body.String())
	}
}

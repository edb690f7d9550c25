package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazaarline/storefront-backend/api/middleware"
	checkoutsvc "github.com/bazaarline/storefront-backend/internal/checkout"
	"github.com/bazaarline/storefront-backend/internal/fees"
	"github.com/bazaarline/storefront-backend/pkg/enums"
)

type stubCheckoutService struct {
	quoteFn  func(ctx context.Context, input checkoutsvc.QuoteInput) (*fees.Breakdown, error)
	createFn func(ctx context.Context, input checkoutsvc.CreateOrderInput) (*checkoutsvc.CreateOrderResult, error)
}

func (s stubCheckoutService) Quote(ctx context.Context, input checkoutsvc.QuoteInput) (*fees.Breakdown, error) {
	if s.quoteFn != nil {
		return s.quoteFn(ctx, input)
	}
	return &fees.Breakdown{}, nil
}

func (s stubCheckoutService) CreateOrder(ctx context.Context, input checkoutsvc.CreateOrderInput) (*checkoutsvc.CreateOrderResult, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return &checkoutsvc.CreateOrderResult{}, nil
}

func withUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func TestCheckoutCreatesOrder(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	productID := uuid.New()
	addressID := uuid.New()
	methodID := uuid.New()

	svc := stubCheckoutService{
		createFn: func(ctx context.Context, input checkoutsvc.CreateOrderInput) (*checkoutsvc.CreateOrderResult, error) {
			if input.UserID != userID {
				t.Fatalf("unexpected user %s", input.UserID)
			}
			if len(input.Items) != 1 || input.Items[0].ProductID != productID || input.Items[0].Quantity != 2 {
				t.Fatalf("unexpected items %+v", input.Items)
			}
			return &checkoutsvc.CreateOrderResult{
				OrderID:       orderID,
				OrderNumber:   "ORD-20250101120000-1234",
				Total:         decimal.RequireFromString("951.08"),
				PaymentStatus: enums.PaymentStatePending,
				PaymentType:   enums.PaymentMethodKindOnline,
			}, nil
		},
	}

	body := `{
		"shipping_address_id": "` + addressID.String() + `",
		"payment_method_id": "` + methodID.String() + `",
		"items": [{"product_id": "` + productID.String() + `", "quantity": 2, "unit_price": 100.00}]
	}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body)), userID)
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data checkoutResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrderID != orderID || envelope.Data.PaymentStatus != "pending" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestCheckoutRejectsEmptyItems(t *testing.T) {
	called := false
	svc := stubCheckoutService{
		createFn: func(ctx context.Context, input checkoutsvc.CreateOrderInput) (*checkoutsvc.CreateOrderResult, error) {
			called = true
			return nil, nil
		},
	}

	body := `{
		"shipping_address_id": "` + uuid.NewString() + `",
		"payment_method_id": "` + uuid.NewString() + `",
		"items": []
	}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", resp.Code, resp.Body.String())
	}
	if called {
		t.Fatal("service should not be called on invalid payload")
	}
}

func TestCheckoutRequiresIdentity(t *testing.T) {
	body := `{"shipping_address_id": "` + uuid.NewString() + `", "payment_method_id": "` + uuid.NewString() + `", "items": [{"product_id": "` + uuid.NewString() + `", "quantity": 1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	resp := httptest.NewRecorder()
	Checkout(stubCheckoutService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCheckoutQuoteReturnsBreakdown(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	svc := stubCheckoutService{
		quoteFn: func(ctx context.Context, input checkoutsvc.QuoteInput) (*fees.Breakdown, error) {
			if len(input.Items) != 1 || input.Items[0].ProductID != productID {
				t.Fatalf("unexpected items %+v", input.Items)
			}
			return &fees.Breakdown{
				Subtotal:       decimal.RequireFromString("200.00"),
				DeliveryCharge: decimal.RequireFromString("500.00"),
				MarketplaceFee: decimal.RequireFromString("4.00"),
				TaxAmount:      decimal.RequireFromString("126.72"),
				GiftCardDebit:  decimal.Zero,
				Total:          decimal.RequireFromString("830.72"),
			}, nil
		},
	}

	body := `{"items": [{"product_id": "` + productID.String() + `", "quantity": 2}]}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", strings.NewReader(body)), userID)
	resp := httptest.NewRecorder()
	CheckoutQuote(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data fees.Breakdown `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Total.Equal(decimal.RequireFromString("830.72")) {
		t.Fatalf("unexpected total %s", envelope.Data.Total)
	}
}

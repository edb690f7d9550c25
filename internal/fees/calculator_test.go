package fees

import (
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/bazaarline/storefront-backend/pkg/errors"
)

func testPolicy() Policy {
	return Policy{
		FreeShippingThreshold: decimal.RequireFromString("5000.00"),
		StandardDeliveryFee:   decimal.RequireFromString("500.00"),
		MarketplaceFeeRate:    decimal.RequireFromString("0.02"),
		TaxRate:               decimal.RequireFromString("0.18"),
	}
}

func mustEqual(t *testing.T, field string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %s, want %s", field, got, want)
	}
}

func TestCalculateFreeShippingAboveThreshold(t *testing.T) {
	calc := NewCalculator(testPolicy())

	bd, err := calc.Calculate([]LineItem{
		{UnitPrice: decimal.RequireFromString("20000.00"), Quantity: 3},
	}, decimal.Zero)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}

	mustEqual(t, "subtotal", bd.Subtotal, decimal.RequireFromString("60000.00"))
	mustEqual(t, "deliveryCharge", bd.DeliveryCharge, decimal.Zero)
	mustEqual(t, "marketplaceFee", bd.MarketplaceFee, decimal.RequireFromString("1200.00"))
	mustEqual(t, "taxAmount", bd.TaxAmount, decimal.RequireFromString("11016.00"))
	mustEqual(t, "total", bd.Total, decimal.RequireFromString("72216.00"))
}

func TestCalculateWithGiftCardBelowThreshold(t *testing.T) {
	calc := NewCalculator(testPolicy())

	bd, err := calc.Calculate([]LineItem{
		{UnitPrice: decimal.RequireFromString("500.00"), Quantity: 2},
	}, decimal.RequireFromString("500.00"))
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}

	mustEqual(t, "subtotal", bd.Subtotal, decimal.RequireFromString("1000.00"))
	mustEqual(t, "deliveryCharge", bd.DeliveryCharge, decimal.RequireFromString("500.00"))
	mustEqual(t, "marketplaceFee", bd.MarketplaceFee, decimal.RequireFromString("20.00"))
	mustEqual(t, "taxAmount", bd.TaxAmount, decimal.RequireFromString("273.60"))
	mustEqual(t, "giftCardDebit", bd.GiftCardDebit, decimal.RequireFromString("500.00"))
	mustEqual(t, "total", bd.Total, decimal.RequireFromString("1293.60"))
}

func TestCalculateDebitCappedAtSubtotal(t *testing.T) {
	calc := NewCalculator(testPolicy())

	// Balance far exceeds the cart; the debit never discounts fees or tax.
	bd, err := calc.Calculate([]LineItem{
		{UnitPrice: decimal.RequireFromString("100.00"), Quantity: 1},
	}, decimal.RequireFromString("10000.00"))
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}

	mustEqual(t, "giftCardDebit", bd.GiftCardDebit, decimal.RequireFromString("100.00"))
	mustEqual(t, "deliveryCharge", bd.DeliveryCharge, decimal.RequireFromString("500.00"))
	mustEqual(t, "marketplaceFee", bd.MarketplaceFee, decimal.RequireFromString("2.00"))
	mustEqual(t, "taxAmount", bd.TaxAmount, decimal.RequireFromString("108.36"))
	mustEqual(t, "total", bd.Total, decimal.RequireFromString("610.36"))
}

func TestCalculateBreakdownSumsToTotal(t *testing.T) {
	calc := NewCalculator(testPolicy())

	items := []LineItem{
		{UnitPrice: decimal.RequireFromString("19.99"), Quantity: 3},
		{UnitPrice: decimal.RequireFromString("4.45"), Quantity: 7},
		{UnitPrice: decimal.RequireFromString("1234.56"), Quantity: 1},
	}

	bd, err := calc.Calculate(items, decimal.RequireFromString("50.00"))
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}

	sum := bd.Subtotal.
		Add(bd.DeliveryCharge).
		Add(bd.MarketplaceFee).
		Add(bd.TaxAmount).
		Sub(bd.GiftCardDebit)
	mustEqual(t, "sum of breakdown fields", sum, bd.Total)
}

func TestCalculateIsDeterministic(t *testing.T) {
	calc := NewCalculator(testPolicy())

	items := []LineItem{{UnitPrice: decimal.RequireFromString("33.33"), Quantity: 3}}

	first, err := calc.Calculate(items, decimal.Zero)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	second, err := calc.Calculate(items, decimal.Zero)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	mustEqual(t, "total", second.Total, first.Total)
	mustEqual(t, "taxAmount", second.TaxAmount, first.TaxAmount)
}

func TestCalculateRejectsBadInput(t *testing.T) {
	calc := NewCalculator(testPolicy())

	cases := []struct {
		name  string
		items []LineItem
	}{
		{"empty cart", nil},
		{"zero quantity", []LineItem{{UnitPrice: decimal.RequireFromString("10.00"), Quantity: 0}}},
		{"negative price", []LineItem{{UnitPrice: decimal.RequireFromString("-1.00"), Quantity: 1}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := calc.Calculate(tc.items, decimal.Zero)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if e := pkgerrors.As(err); e == nil || e.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation code, got %v", err)
			}
		})
	}
}

func TestLineTotalRoundsHalfUp(t *testing.T) {
	// 3 x 1.115 = 3.345, rounds half-up to 3.35
	got := LineTotal(decimal.RequireFromString("1.115"), 3)
	mustEqual(t, "line total", got, decimal.RequireFromString("3.35"))
}

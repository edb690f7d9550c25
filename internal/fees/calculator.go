package fees

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bazaarline/storefront-backend/pkg/config"
	pkgerrors "github.com/bazaarline/storefront-backend/pkg/errors"
)

// LineItem is a priced cart entry. UnitPrice is the catalog price at quote
// time, not whatever the client sent.
type LineItem struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Breakdown is the full monetary decomposition of a cart. The fields always
// satisfy Subtotal + DeliveryCharge + MarketplaceFee + TaxAmount -
// GiftCardDebit == Total.
type Breakdown struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	MarketplaceFee decimal.Decimal `json:"marketplace_fee"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	GiftCardDebit  decimal.Decimal `json:"gift_card_debit"`
	Total          decimal.Decimal `json:"total"`
}

// Policy holds the fixed fee constants. Values come from config with
// production defaults; tests construct them directly.
type Policy struct {
	FreeShippingThreshold decimal.Decimal
	StandardDeliveryFee   decimal.Decimal
	MarketplaceFeeRate    decimal.Decimal
	TaxRate               decimal.Decimal
}

// PolicyFromConfig lifts the parsed checkout config into a Policy.
func PolicyFromConfig(c config.CheckoutConfig) Policy {
	return Policy{
		FreeShippingThreshold: c.FreeShippingThreshold,
		StandardDeliveryFee:   c.StandardDeliveryFee,
		MarketplaceFeeRate:    c.MarketplaceFeeRate,
		TaxRate:               c.TaxRate,
	}
}

// Calculator computes fee breakdowns. It is stateless and safe for
// concurrent use.
type Calculator struct {
	policy Policy
}

func NewCalculator(policy Policy) *Calculator {
	return &Calculator{policy: policy}
}

// round2 rounds half-up to two decimal places. Every intermediate monetary
// value passes through here so the breakdown sums exactly to the total.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineTotal is the rounded extended price for a single line item.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return round2(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// Calculate maps a cart plus an optional gift-card balance to a Breakdown.
// Pass decimal.Zero for giftCardBalance when no card applies. The debit is
// capped at subtotal: the card discounts goods, not fees or tax.
func (c *Calculator) Calculate(items []LineItem, giftCardBalance decimal.Decimal) (Breakdown, error) {
	if len(items) == 0 {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}

	subtotal := decimal.Zero
	for i, item := range items {
		if item.Quantity < 1 {
			return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line item %d: quantity must be at least 1", i))
		}
		if item.UnitPrice.IsNegative() {
			return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line item %d: unit price must not be negative", i))
		}
		subtotal = subtotal.Add(LineTotal(item.UnitPrice, item.Quantity))
	}

	deliveryCharge := c.policy.StandardDeliveryFee
	if subtotal.GreaterThanOrEqual(c.policy.FreeShippingThreshold) {
		deliveryCharge = decimal.Zero
	}

	marketplaceFee := round2(subtotal.Mul(c.policy.MarketplaceFeeRate))

	taxBase := subtotal.Add(deliveryCharge).Add(marketplaceFee)
	taxAmount := round2(taxBase.Mul(c.policy.TaxRate))

	debit := decimal.Zero
	if giftCardBalance.IsPositive() {
		debit = decimal.Min(giftCardBalance, subtotal)
		debit = round2(debit)
	}

	total := round2(subtotal.Add(deliveryCharge).Add(marketplaceFee).Add(taxAmount).Sub(debit))
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Breakdown{
		Subtotal:       subtotal,
		DeliveryCharge: deliveryCharge,
		MarketplaceFee: marketplaceFee,
		TaxAmount:      taxAmount,
		GiftCardDebit:  debit,
		Total:          total,
	}, nil
}

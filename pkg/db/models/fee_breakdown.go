package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeBreakdown is the one-to-one fee record for an order. It is written once
// during order creation and never mutated afterwards.
type FeeBreakdown struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DeliveryCharge decimal.Decimal `gorm:"column:delivery_charge;type:numeric(12,2);not null"`
	MarketplaceFee decimal.Decimal `gorm:"column:marketplace_fee;type:numeric(12,2);not null"`
	TaxAmount      decimal.Decimal `gorm:"column:tax_amount;type:numeric(12,2);not null"`
	GiftCardDebit  decimal.Decimal `gorm:"column:gift_card_debit;type:numeric(12,2);not null"`
	Total          decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

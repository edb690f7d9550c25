package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazaarline/storefront-backend/pkg/enums"
)

// Order is the aggregate root for a checkout. Monetary columns always satisfy
// Total = Subtotal + DeliveryCharge + MarketplaceFee + TaxAmount - GiftCardDebit.
type Order struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string               `gorm:"column:order_number;not null;uniqueIndex"`
	UserID            uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	Status            enums.OrderStatus    `gorm:"column:status;type:text;not null"`
	PaymentState      enums.PaymentState   `gorm:"column:payment_status;type:text;not null"`
	Subtotal          decimal.Decimal      `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DeliveryCharge    decimal.Decimal      `gorm:"column:delivery_charge;type:numeric(12,2);not null"`
	MarketplaceFee    decimal.Decimal      `gorm:"column:marketplace_fee;type:numeric(12,2);not null"`
	TaxAmount         decimal.Decimal      `gorm:"column:tax_amount;type:numeric(12,2);not null"`
	GiftCardDebit     decimal.Decimal      `gorm:"column:gift_card_debit;type:numeric(12,2);not null"`
	Total             decimal.Decimal      `gorm:"column:total;type:numeric(12,2);not null"`
	GiftCardCode      *string              `gorm:"column:gift_card_code"`
	ShippingAddressID uuid.UUID            `gorm:"column:shipping_address_id;type:uuid;not null"`
	BillingAddressID  *uuid.UUID           `gorm:"column:billing_address_id;type:uuid"`
	PaymentMethodID   uuid.UUID            `gorm:"column:payment_method_id;type:uuid;not null"`
	Notes             *string              `gorm:"column:notes"`
	ShippedAt         *time.Time           `gorm:"column:shipped_at"`
	DeliveredAt       *time.Time           `gorm:"column:delivered_at"`
	CancelledAt       *time.Time           `gorm:"column:cancelled_at"`
	Items             []OrderLineItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Fees              *FeeBreakdown        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment           *PaymentTransaction  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History           []StatusHistoryEntry `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

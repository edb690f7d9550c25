package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazaarline/storefront-backend/pkg/enums"
)

// PaymentTransaction tracks the gateway payment for an online order. The amount
// must equal the order total at authorization time.
type PaymentTransaction struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	GatewayTxnID    string          `gorm:"column:gateway_txn_id;not null;uniqueIndex"`
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Status          enums.TxnStatus `gorm:"column:status;type:text;not null"`
	GatewayResponse json.RawMessage `gorm:"column:gateway_response;type:jsonb"`
	FailureReason   *string         `gorm:"column:failure_reason"`
	ResolvedAt      *time.Time      `gorm:"column:resolved_at"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GiftCard is a stored-value instrument identified by a case-normalized code.
// Balance never exceeds IssuedAmount and never goes negative.
type GiftCard struct {
	Code         string          `gorm:"column:code;primaryKey"`
	Balance      decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null"`
	IssuedAmount decimal.Decimal `gorm:"column:issued_amount;type:numeric(12,2);not null"`
	Active       bool            `gorm:"column:active;not null"`
	ExpiresAt    *time.Time      `gorm:"column:expires_at"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

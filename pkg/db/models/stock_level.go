package models

import (
	"time"

	"github.com/google/uuid"
)

// StockLevel tracks the available quantity per product. Quantity never goes
// below zero; all mutations run through conditional updates.
type StockLevel struct {
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	Quantity  int       `gorm:"column:quantity;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

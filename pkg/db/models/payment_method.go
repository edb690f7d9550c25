package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bazaarline/storefront-backend/pkg/enums"
)

// PaymentMethod is a registry row describing how an order can be paid.
type PaymentMethod struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	Name      string                  `gorm:"column:name;not null"`
	Kind      enums.PaymentMethodKind `gorm:"column:kind;type:text;not null"`
	Active    bool                    `gorm:"column:active;not null"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

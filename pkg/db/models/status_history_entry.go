package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bazaarline/storefront-backend/pkg/enums"
)

// StatusHistoryEntry is the append-only audit log of order status changes.
// Rows are never updated or deleted.
type StatusHistoryEntry struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null"`
	Note      *string           `gorm:"column:note"`
	ActorID   *uuid.UUID        `gorm:"column:actor_id;type:uuid"`
	ActorRole enums.ActorRole   `gorm:"column:actor_role;type:text;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

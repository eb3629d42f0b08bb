package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionstore-backend/pkg/enums"
)

// OrderStatusHistory is the append-only audit row written per transition.
type OrderStatusHistory struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index:idx_order_status_history_order_id"`
	Status    enums.OrderStatus `gorm:"column:status;type:varchar(32);not null"`
	Notes     *string           `gorm:"column:notes"`
	CreatedBy *uuid.UUID        `gorm:"column:created_by;type:uuid"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (OrderStatusHistory) TableName() string { return "order_status_history" }

func (h *OrderStatusHistory) BeforeCreate(*gorm.DB) error {
	ensureID(&h.ID)
	return nil
}

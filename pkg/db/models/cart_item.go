package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartItem is one variant line in a cart. Price is never stored; it is read from Product.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:ux_cart_items_variant,priority:1"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_cart_items_variant,priority:2"`
	Size      string    `gorm:"column:size;not null;uniqueIndex:ux_cart_items_variant,priority:3"`
	Color     string    `gorm:"column:color;not null;uniqueIndex:ux_cart_items_variant,priority:4"`
	Quantity  int       `gorm:"column:quantity;not null;check:chk_cart_items_quantity,quantity BETWEEN 1 AND 999"`
	Product   *Product  `gorm:"foreignKey:ProductID"`
	AddedAt   time.Time `gorm:"column:added_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

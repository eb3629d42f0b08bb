package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VariantStock is the on-hand quantity for one (size, color) of a product.
type VariantStock struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_variant_stocks_variant,priority:1"`
	Size      string    `gorm:"column:size;not null;uniqueIndex:ux_variant_stocks_variant,priority:2"`
	Color     string    `gorm:"column:color;not null;uniqueIndex:ux_variant_stocks_variant,priority:3"`
	Quantity  int       `gorm:"column:quantity;not null;check:chk_variant_stocks_quantity,quantity >= 0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *VariantStock) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

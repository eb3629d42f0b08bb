package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionstore-backend/pkg/enums"
)

// Order is the header written once per checkout. After creation only the
// status, payment, tracking and delivery fields change.
type Order struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string              `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	UserID            uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index:idx_orders_user_created,priority:1"`
	ShippingAddressID uuid.UUID           `gorm:"column:shipping_address_id;type:uuid;not null"`
	BillingAddressID  *uuid.UUID          `gorm:"column:billing_address_id;type:uuid"`
	Status            enums.OrderStatus   `gorm:"column:status;type:varchar(32);not null"`
	PaymentStatus     enums.PaymentStatus `gorm:"column:payment_status;type:varchar(32);not null"`
	TrackingID        *string             `gorm:"column:tracking_id"`
	Subtotal          decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	TaxAmount         decimal.Decimal     `gorm:"column:tax_amount;type:numeric(12,2);not null"`
	ShippingAmount    decimal.Decimal     `gorm:"column:shipping_amount;type:numeric(12,2);not null"`
	DiscountAmount    decimal.Decimal     `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	TotalAmount       decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	GatewayOrderID    *string             `gorm:"column:gateway_order_id;index:idx_orders_gateway_order_id"`
	Notes             *string             `gorm:"column:notes"`
	IsGift            bool                `gorm:"column:is_gift;not null"`
	GiftMessage       *string             `gorm:"column:gift_message"`
	Items             []OrderItem         `gorm:"foreignKey:OrderID"`
	ShippingAddress   *Address            `gorm:"foreignKey:ShippingAddressID"`
	BillingAddress    *Address            `gorm:"foreignKey:BillingAddressID"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime;index:idx_orders_user_created,priority:2"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	DeliveredAt       *time.Time          `gorm:"column:delivered_at"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

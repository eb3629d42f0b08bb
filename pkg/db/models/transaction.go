package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionstore-backend/pkg/enums"
)

// Transaction is one payment gateway attempt against an order.
type Transaction struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index:idx_transactions_user_id"`
	OrderID          uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index:idx_transactions_order_id"`
	GatewayOrderID   string                  `gorm:"column:gateway_order_id;not null;index:idx_transactions_gateway_order_id"`
	GatewayPaymentID *string                 `gorm:"column:gateway_payment_id"`
	GatewaySignature *string                 `gorm:"column:gateway_signature"`
	Status           enums.TransactionStatus `gorm:"column:status;type:varchar(32);not null"`
	Amount           decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency         string                  `gorm:"column:currency;type:varchar(3);not null"`
	GatewayResponse  json.RawMessage         `gorm:"column:gateway_response;type:jsonb"`
	FailureReason    *string                 `gorm:"column:failure_reason"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
	CompletedAt      *time.Time              `gorm:"column:completed_at"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	if t.Currency == "" {
		t.Currency = "INR"
	}
	return nil
}

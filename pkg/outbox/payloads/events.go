package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fashionstore-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once per committed checkout.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	UserID      uuid.UUID `json:"userId"`
	ItemCount   int       `json:"itemCount"`
	TotalAmount string    `json:"totalAmount"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"createdAt"`
}

// OrderStatusChangedEvent is emitted for every fulfilment transition.
type OrderStatusChangedEvent struct {
	OrderID       uuid.UUID           `json:"orderId"`
	OrderNumber   string              `json:"orderNumber"`
	UserID        uuid.UUID           `json:"userId"`
	From          enums.OrderStatus   `json:"from"`
	To            enums.OrderStatus   `json:"to"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus"`
	TrackingID    *string             `json:"trackingId,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	ChangedAt     time.Time           `json:"changedAt"`
}

// PaymentStatusEvent reports a gateway outcome for an order.
type PaymentStatusEvent struct {
	TransactionID    uuid.UUID               `json:"transactionId"`
	OrderID          uuid.UUID               `json:"orderId"`
	UserID           uuid.UUID               `json:"userId"`
	GatewayOrderID   string                  `json:"gatewayOrderId"`
	GatewayPaymentID *string                 `json:"gatewayPaymentId,omitempty"`
	Status           enums.TransactionStatus `json:"status"`
	Amount           string                  `json:"amount"`
	Currency         string                  `json:"currency"`
	Reason           string                  `json:"reason,omitempty"`
	OccurredAt       time.Time               `json:"occurredAt"`
}

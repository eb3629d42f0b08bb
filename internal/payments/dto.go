package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fashionstore-backend/pkg/db/models"
	"github.com/angelmondragon/fashionstore-backend/pkg/enums"
	"github.com/angelmondragon/fashionstore-backend/pkg/money"
)

// InitiatePaymentResult is what the storefront needs to open the checkout widget.
type InitiatePaymentResult struct {
	TransactionID   uuid.UUID `json:"transactionId"`
	OrderID         uuid.UUID `json:"orderId"`
	OrderNumber     string    `json:"orderNumber"`
	GatewayOrderRef string    `json:"gatewayOrderRef"`
	Amount          string    `json:"amount"`
	AmountMinor     int64     `json:"amountMinor"`
	Currency        string    `json:"currency"`
	KeyID           string    `json:"keyId"`
}

// VerifyPaymentInput carries the checkout callback fields.
type VerifyPaymentInput struct {
	GatewayOrderID   string `json:"gatewayOrderId" validate:"required"`
	GatewayPaymentID string `json:"gatewayPaymentId" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

type TransactionView struct {
	TransactionID    uuid.UUID               `json:"transactionId"`
	OrderID          uuid.UUID               `json:"orderId"`
	UserID           uuid.UUID               `json:"userId"`
	GatewayOrderID   string                  `json:"gatewayOrderId"`
	GatewayPaymentID *string                 `json:"gatewayPaymentId"`
	Status           enums.TransactionStatus `json:"status"`
	Amount           string                  `json:"amount"`
	Currency         string                  `json:"currency"`
	FailureReason    *string                 `json:"failureReason"`
	CreatedAt        time.Time               `json:"createdAt"`
	UpdatedAt        time.Time               `json:"updatedAt"`
	CompletedAt      *time.Time              `json:"completedAt"`
}

type TransactionList struct {
	Transactions []TransactionView `json:"transactions"`
	NextCursor   string            `json:"nextCursor,omitempty"`
}

func newTransactionView(txn *models.Transaction) *TransactionView {
	return &TransactionView{
		TransactionID:    txn.ID,
		OrderID:          txn.OrderID,
		UserID:           txn.UserID,
		GatewayOrderID:   txn.GatewayOrderID,
		GatewayPaymentID: txn.GatewayPaymentID,
		Status:           txn.Status,
		Amount:           money.Format(txn.Amount),
		Currency:         txn.Currency,
		FailureReason:    txn.FailureReason,
		CreatedAt:        txn.CreatedAt,
		UpdatedAt:        txn.UpdatedAt,
		CompletedAt:      txn.CompletedAt,
	}
}

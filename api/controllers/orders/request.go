package orders

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fashionstore-backend/api/validators"
	internalorders "github.com/angelmondragon/fashionstore-backend/internal/orders"
	"github.com/angelmondragon/fashionstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fashionstore-backend/pkg/errors"
)

type createOrderRequest struct {
	ShippingAddressID uuid.UUID        `json:"shippingAddressId" validate:"required"`
	BillingAddressID  *uuid.UUID       `json:"billingAddressId"`
	Notes             *string          `json:"notes" validate:"omitempty,max=1000"`
	IsGift            bool             `json:"isGift"`
	GiftMessage       *string          `json:"giftMessage" validate:"omitempty,max=500"`
	TaxAmount         *decimal.Decimal `json:"taxAmount"`
	ShippingAmount    *decimal.Decimal `json:"shippingAmount"`
	DiscountAmount    *decimal.Decimal `json:"discountAmount"`
}

func (p createOrderRequest) toInput() internalorders.CreateOrderInput {
	return internalorders.CreateOrderInput{
		ShippingAddressID: p.ShippingAddressID,
		BillingAddressID:  p.BillingAddressID,
		Notes:             sanitizeOptional(p.Notes, 1000),
		IsGift:            p.IsGift,
		GiftMessage:       sanitizeOptional(p.GiftMessage, 500),
		TaxAmount:         p.TaxAmount,
		ShippingAmount:    p.ShippingAmount,
		DiscountAmount:    p.DiscountAmount,
	}
}

type updateStatusRequest struct {
	Status     string  `json:"status" validate:"required"`
	Notes      *string `json:"notes" validate:"omitempty,max=1000"`
	TrackingID *string `json:"trackingId" validate:"omitempty,max=100"`
}

func (p updateStatusRequest) toInput() (internalorders.UpdateStatusInput, error) {
	status, err := enums.ParseOrderStatus(strings.ToUpper(strings.TrimSpace(p.Status)))
	if err != nil {
		return internalorders.UpdateStatusInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
			WithDetails(map[string]any{"field": "status"})
	}
	return internalorders.UpdateStatusInput{
		Status:     status,
		Notes:      sanitizeOptional(p.Notes, 1000),
		TrackingID: sanitizeOptional(p.TrackingID, 100),
	}, nil
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func sanitizeOptional(value *string, maxLen int) *string {
	if value == nil {
		return nil
	}
	cleaned := validators.SanitizeString(*value, maxLen)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fashionstore-backend/internal/users"
	"github.com/angelmondragon/fashionstore-backend/pkg/db/models"
	"github.com/angelmondragon/fashionstore-backend/pkg/enums"
	"github.com/angelmondragon/fashionstore-backend/pkg/money"
)

// OrderView is the transport shape of an order with its frozen line items.
type OrderView struct {
	OrderID         uuid.UUID           `json:"orderId"`
	OrderNumber     string              `json:"orderNumber"`
	UserID          uuid.UUID           `json:"userId"`
	Status          enums.OrderStatus   `json:"status"`
	PaymentStatus   enums.PaymentStatus `json:"paymentStatus"`
	Items           []OrderItemView     `json:"items"`
	Subtotal        string              `json:"subtotal"`
	TaxAmount       string              `json:"taxAmount"`
	ShippingAmount  string              `json:"shippingAmount"`
	DiscountAmount  string              `json:"discountAmount"`
	TotalAmount     string              `json:"totalAmount"`
	TrackingID      *string             `json:"trackingId"`
	ShippingAddress *users.AddressDTO   `json:"shippingAddress,omitempty"`
	BillingAddress  *users.AddressDTO   `json:"billingAddress,omitempty"`
	Notes           *string             `json:"notes,omitempty"`
	IsGift          bool                `json:"isGift"`
	GiftMessage     *string             `json:"giftMessage,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
	DeliveredAt     *time.Time          `json:"deliveredAt"`
}

type OrderItemView struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName"`
	ProductSKU  *string   `json:"productSku,omitempty"`
	Size        string    `json:"size"`
	Color       string    `json:"color"`
	Quantity    int       `json:"quantity"`
	UnitPrice   string    `json:"unitPrice"`
	TotalPrice  string    `json:"totalPrice"`
}

type StatusHistoryView struct {
	Status    enums.OrderStatus `json:"status"`
	Notes     *string           `json:"notes,omitempty"`
	CreatedBy *uuid.UUID        `json:"createdBy,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// OrderList is one page of a user's order history, newest first.
type OrderList struct {
	Orders     []OrderView `json:"orders"`
	NextCursor string      `json:"nextCursor,omitempty"`
}

func newOrderView(order *models.Order) *OrderView {
	view := &OrderView{
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		Status:          order.Status,
		PaymentStatus:   order.PaymentStatus,
		Items:           make([]OrderItemView, 0, len(order.Items)),
		Subtotal:        money.Format(order.Subtotal),
		TaxAmount:       money.Format(order.TaxAmount),
		ShippingAmount:  money.Format(order.ShippingAmount),
		DiscountAmount:  money.Format(order.DiscountAmount),
		TotalAmount:     money.Format(order.TotalAmount),
		TrackingID:      order.TrackingID,
		ShippingAddress: users.AddressFromModel(order.ShippingAddress),
		BillingAddress:  users.AddressFromModel(order.BillingAddress),
		Notes:           order.Notes,
		IsGift:          order.IsGift,
		GiftMessage:     order.GiftMessage,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
		DeliveredAt:     order.DeliveredAt,
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, OrderItemView{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ProductSKU:  item.ProductSKU,
			Size:        item.Size,
			Color:       item.Color,
			Quantity:    item.Quantity,
			UnitPrice:   money.Format(item.UnitPrice),
			TotalPrice:  money.Format(item.TotalPrice),
		})
	}
	return view
}

func newStatusHistoryView(rows []models.OrderStatusHistory) []StatusHistoryView {
	out := make([]StatusHistoryView, 0, len(rows))
	for _, row := range rows {
		out = append(out, StatusHistoryView{
			Status:    row.Status,
			Notes:     row.Notes,
			CreatedBy: row.CreatedBy,
			CreatedAt: row.CreatedAt,
		})
	}
	return out
}

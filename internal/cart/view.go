package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fashionstore-backend/internal/catalog"
	"github.com/angelmondragon/fashionstore-backend/pkg/db/models"
	"github.com/angelmondragon/fashionstore-backend/pkg/money"
)

// CartView is the live quote of a cart. Amounts are recomputed from current product prices on every read.
type CartView struct {
	CartID      uuid.UUID      `json:"cartId"`
	User        uuid.UUID      `json:"user"`
	Items       []CartItemView `json:"items"`
	TotalItems  int            `json:"totalItems"`
	ItemsCount  int            `json:"itemsCount"`
	TotalAmount string         `json:"totalAmount"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// CartItemView is one line of a CartView.
type CartItemView struct {
	ID             uuid.UUID `json:"id"`
	Product        uuid.UUID `json:"product"`
	ProductName    string    `json:"productName"`
	Quantity       int       `json:"quantity"`
	Size           string    `json:"size"`
	Color          string    `json:"color"`
	UnitPrice      string    `json:"unitPrice"`
	EffectivePrice string    `json:"effectivePrice"`
	TotalPrice     string    `json:"totalPrice"`
	AddedAt        time.Time `json:"addedAt"`
}

// Totals are the derived cart figures.
type Totals struct {
	TotalItems  int
	ItemsCount  int
	TotalAmount decimal.Decimal
}

// ComputeTotals sums quantities and quantity × product.price over lines with a loaded product.
func ComputeTotals(items []models.CartItem) Totals {
	totals := Totals{ItemsCount: len(items), TotalAmount: decimal.Zero}
	for _, item := range items {
		totals.TotalItems += item.Quantity
		if item.Product != nil {
			totals.TotalAmount = totals.TotalAmount.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}
	return totals
}

func newCartView(cart *models.Cart, items []models.CartItem) *CartView {
	totals := ComputeTotals(items)
	view := &CartView{
		CartID:      cart.ID,
		User:        cart.UserID,
		Items:       make([]CartItemView, 0, len(items)),
		TotalItems:  totals.TotalItems,
		ItemsCount:  totals.ItemsCount,
		TotalAmount: money.Format(totals.TotalAmount),
		UpdatedAt:   cart.UpdatedAt,
	}
	for _, item := range items {
		view.Items = append(view.Items, newCartItemView(item))
	}
	return view
}

func newCartItemView(item models.CartItem) CartItemView {
	line := CartItemView{
		ID:        item.ID,
		Product:   item.ProductID,
		Quantity:  item.Quantity,
		Size:      item.Size,
		Color:     item.Color,
		AddedAt:   item.AddedAt,
		UnitPrice: money.Format(decimal.Zero),
	}
	line.EffectivePrice = line.UnitPrice
	line.TotalPrice = line.UnitPrice
	if item.Product != nil {
		line.ProductName = item.Product.Name
		line.UnitPrice = money.Format(item.Product.Price)
		line.EffectivePrice = money.Format(catalog.EffectivePrice(*item.Product))
		line.TotalPrice = money.Format(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return line
}

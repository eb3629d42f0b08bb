package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionstore-backend/internal/inventory"
	"github.com/angelmondragon/fashionstore-backend/internal/users"
	"github.com/angelmondragon/fashionstore-backend/pkg/auth"
	"github.com/angelmondragon/fashionstore-backend/pkg/db"
	"github.com/angelmondragon/fashionstore-backend/pkg/db/models"
	"github.com/angelmondragon/fashionstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fashionstore-backend/pkg/errors"
	"github.com/angelmondragon/fashionstore-backend/pkg/money"
	"github.com/angelmondragon/fashionstore-backend/pkg/outbox"
	"github.com/angelmondragon/fashionstore-backend/pkg/outbox/payloads"
)

const orderCreatedNote = "Order created"

// CreateOrderInput carries the checkout form. Nil amounts default to zero.
type CreateOrderInput struct {
	ShippingAddressID uuid.UUID
	BillingAddressID  *uuid.UUID
	Notes             *string
	IsGift            bool
	GiftMessage       *string
	TaxAmount         *decimal.Decimal
	ShippingAmount    *decimal.Decimal
	DiscountAmount    *decimal.Decimal
}

type orderAmounts struct {
	tax      decimal.Decimal
	shipping decimal.Decimal
	discount decimal.Decimal
}

// CreateOrder converts the actor's cart into an order. The whole pipeline is
// one transaction; a collision on the order number retries it from scratch.
func (s *service) CreateOrder(ctx context.Context, actor auth.Actor, input CreateOrderInput) (*OrderView, error) {
	started := time.Now()
	view, err := s.createOrder(ctx, actor, input)

	outcome := "success"
	if err != nil {
		outcome = string(pkgerrors.CodeOf(err))
	}
	s.metrics.ObserveCommit(outcome, time.Since(started))

	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithOrderID(ctx, view.OrderID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"order_number": view.OrderNumber,
		"user_id":      view.UserID.String(),
		"total_amount": view.TotalAmount,
	})
	s.logg.Info(logCtx, "order committed")
	return view, nil
}

func (s *service) createOrder(ctx context.Context, actor auth.Actor, input CreateOrderInput) (*OrderView, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	amounts, err := validateCreateOrder(&input)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		view, err := s.commit(ctx, actor, input, amounts)
		if err == nil {
			return view, nil
		}
		if !db.IsUniqueViolation(err, OrderNumberConstraint) {
			return nil, err
		}
		if attempt >= s.maxAttempts {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "could not allocate order number").
				WithDetails(map[string]any{"attempts": attempt})
		}
		s.metrics.IncOrderNumberRetry()
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "order number collision, retrying checkout")
	}
}

func (s *service) commit(ctx context.Context, actor auth.Actor, input CreateOrderInput, amounts orderAmounts) (*OrderView, error) {
	var view *OrderView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		carts := s.carts.WithTx(tx)
		store := s.catalog.WithTx(tx)
		dir := s.users.WithTx(tx)
		userID := actor.UserID

		if _, err := dir.GetUser(ctx, userID); err != nil {
			return err
		}
		if err := checkAddress(ctx, dir, userID, input.ShippingAddressID, "shippingAddressId"); err != nil {
			return err
		}
		if input.BillingAddressID != nil {
			if err := checkAddress(ctx, dir, userID, *input.BillingAddressID, "billingAddressId"); err != nil {
				return err
			}
		}

		userCart, err := carts.FindByUser(ctx, userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		var lines []models.CartItem
		if userCart != nil {
			if lines, err = carts.ListItems(ctx, userCart.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
			}
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty").
				WithDetails(map[string]any{"field": "cart"})
		}

		subtotal := decimal.Zero
		products := make([]*models.Product, len(lines))
		for i, line := range lines {
			product := line.Product
			if product == nil {
				if product, err = store.GetProduct(ctx, line.ProductID); err != nil {
					return err
				}
			}
			products[i] = product
			if !product.IsActive {
				return pkgerrors.New(pkgerrors.CodeValidation, "product is no longer available").
					WithDetails(map[string]any{"field": "items", "productId": product.ID.String()})
			}
			check := inventory.Line{ProductID: line.ProductID, Size: line.Size, Color: line.Color, Quantity: line.Quantity}
			if err := inventory.Require(ctx, store, "items", check); err != nil {
				return err
			}
			subtotal = subtotal.Add(lineTotal(product.Price, line.Quantity))
		}

		total := orderTotal(subtotal, amounts.tax, amounts.shipping, amounts.discount)
		if total.IsNegative() {
			return negativeTotalError(total)
		}

		now := s.now().UTC()
		number, err := allocateOrderNumber(ctx, repo, now.Year())
		if err != nil {
			return err
		}

		order := &models.Order{
			OrderNumber:       number,
			UserID:            userID,
			ShippingAddressID: input.ShippingAddressID,
			BillingAddressID:  input.BillingAddressID,
			Status:            enums.OrderStatusPending,
			PaymentStatus:     enums.PaymentStatusPending,
			Subtotal:          subtotal,
			TaxAmount:         amounts.tax,
			ShippingAmount:    amounts.shipping,
			DiscountAmount:    amounts.discount,
			TotalAmount:       total,
			Notes:             input.Notes,
			IsGift:            input.IsGift,
			GiftMessage:       input.GiftMessage,
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err, OrderNumberConstraint) {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number taken")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
		}

		items := make([]models.OrderItem, 0, len(lines))
		for i, line := range lines {
			product := products[i]
			sku := product.SKU
			items = append(items, models.OrderItem{
				OrderID:     order.ID,
				ProductID:   product.ID,
				ProductName: product.Name,
				ProductSKU:  &sku,
				Size:        line.Size,
				Color:       line.Color,
				Quantity:    line.Quantity,
				UnitPrice:   product.Price,
				TotalPrice:  lineTotal(product.Price, line.Quantity),
			})
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order items")
		}

		note := orderCreatedNote
		if err := repo.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:   order.ID,
			Status:    enums.OrderStatusPending,
			Notes:     &note,
			CreatedBy: actor.Ref(),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert status history")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      userID,
				ItemCount:   len(items),
				TotalAmount: money.Format(total),
				Currency:    s.currency,
				CreatedAt:   now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
		}

		if _, err := carts.DeleteItems(ctx, userCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		view, err = s.reload(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func validateCreateOrder(input *CreateOrderInput) (orderAmounts, error) {
	var amounts orderAmounts
	if input.ShippingAddressID == uuid.Nil {
		return amounts, fieldError("shippingAddressId", "shipping address is required")
	}
	if input.BillingAddressID != nil && *input.BillingAddressID == uuid.Nil {
		input.BillingAddressID = nil
	}

	input.Notes = trimOptional(input.Notes)
	input.GiftMessage = trimOptional(input.GiftMessage)
	if input.GiftMessage != nil && !input.IsGift {
		return amounts, fieldError("giftMessage", "gift message requires isGift")
	}

	var err error
	if amounts.tax, err = nonNegative("taxAmount", input.TaxAmount); err != nil {
		return amounts, err
	}
	if amounts.shipping, err = nonNegative("shippingAmount", input.ShippingAmount); err != nil {
		return amounts, err
	}
	if amounts.discount, err = nonNegative("discountAmount", input.DiscountAmount); err != nil {
		return amounts, err
	}
	return amounts, nil
}

func nonNegative(field string, value *decimal.Decimal) (decimal.Decimal, error) {
	if value == nil {
		return decimal.Zero, nil
	}
	if value.IsNegative() {
		return decimal.Zero, fieldError(field, fmt.Sprintf("%s must not be negative", field))
	}
	return money.Round2(*value), nil
}

// checkAddress reports a missing or foreign address as a validation failure
// on field, since the id came from the request body.
func checkAddress(ctx context.Context, dir users.Directory, userID, addressID uuid.UUID, field string) error {
	addr, err := dir.GetAddress(ctx, addressID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return fieldError(field, "address not found")
		}
		return err
	}
	if addr.UserID != userID {
		return fieldError(field, "address belongs to another user")
	}
	return nil
}

func lineTotal(unit decimal.Decimal, qty int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(qty)))
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func actorRef(actor auth.Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, IsStaff: actor.IsStaff}
}

func fieldError(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]any{"field": field})
}

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

	"github.com/angelmondragon/fashionstore-backend/internal/cart"
	"github.com/angelmondragon/fashionstore-backend/internal/catalog"
	"github.com/angelmondragon/fashionstore-backend/internal/users"
	"github.com/angelmondragon/fashionstore-backend/pkg/auth"
	"github.com/angelmondragon/fashionstore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fashionstore-backend/pkg/errors"
	"github.com/angelmondragon/fashionstore-backend/pkg/logger"
	"github.com/angelmondragon/fashionstore-backend/pkg/metrics"
	"github.com/angelmondragon/fashionstore-backend/pkg/outbox"
	"github.com/angelmondragon/fashionstore-backend/pkg/pagination"
)

const (
	defaultMaxOrderNumberAttempts = 5
	defaultCurrency               = "INR"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes checkout, order reads and the fulfilment state machine.
type Service interface {
	CreateOrder(ctx context.Context, actor auth.Actor, input CreateOrderInput) (*OrderView, error)
	GetOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderView, error)
	ListOrders(ctx context.Context, actor auth.Actor, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	GetStatusHistory(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]StatusHistoryView, error)
	UpdateStatus(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderView, error)
	CancelOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID, reason string) (*OrderView, error)
	RecalculateTotals(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderView, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo     Repository
	Carts    cart.CartRepository
	Catalog  catalog.Store
	Users    users.Directory
	Outbox   outbox.Emitter
	Tx       txRunner
	Logger   *logger.Logger
	Metrics  *metrics.CheckoutMetrics
	Currency string

	// MaxOrderNumberAttempts bounds whole-transaction retries after an
	// order number collision. Defaults to 5.
	MaxOrderNumberAttempts int
	// SettlePayment decides the payment status written on DELIVERED.
	SettlePayment SettlementPolicy
	Now           func() time.Time
}

type service struct {
	repo        Repository
	carts       cart.CartRepository
	catalog     catalog.Store
	users       users.Directory
	outbox      outbox.Emitter
	tx          txRunner
	logg        *logger.Logger
	metrics     *metrics.CheckoutMetrics
	currency    string
	maxAttempts int
	settle      SettlementPolicy
	now         func() time.Time
}

// NewService builds the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog store required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	svc := &service{
		repo:        params.Repo,
		carts:       params.Carts,
		catalog:     params.Catalog,
		users:       params.Users,
		outbox:      params.Outbox,
		tx:          params.Tx,
		logg:        params.Logger,
		metrics:     params.Metrics,
		currency:    strings.ToUpper(strings.TrimSpace(params.Currency)),
		maxAttempts: params.MaxOrderNumberAttempts,
		settle:      params.SettlePayment,
		now:         params.Now,
	}
	if svc.currency == "" {
		svc.currency = defaultCurrency
	}
	if svc.maxAttempts <= 0 {
		svc.maxAttempts = defaultMaxOrderNumberAttempts
	}
	if svc.settle == nil {
		svc.settle = SettlePaymentOnDelivery
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

func (s *service) GetOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.loadOwnedOrder(ctx, s.repo, actor, orderID)
	if err != nil {
		return nil, err
	}
	return newOrderView(order), nil
}

func (s *service) ListOrders(ctx context.Context, actor auth.Actor, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !actor.CanAccess(userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "orders belong to another user")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
			WithDetails(map[string]any{"field": "cursor"})
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListByUser(ctx, userID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	list := &OrderList{Orders: make([]OrderView, 0, len(rows))}
	if len(rows) > limit {
		last := rows[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:limit]
	}
	for i := range rows {
		list.Orders = append(list.Orders, *newOrderView(&rows[i]))
	}
	return list, nil
}

func (s *service) GetStatusHistory(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]StatusHistoryView, error) {
	order, err := s.loadOwnedOrder(ctx, s.repo, actor, orderID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListHistory(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load status history")
	}
	return newStatusHistoryView(rows), nil
}

// RecalculateTotals rebuilds subtotal and total from the frozen line items.
func (s *service) RecalculateTotals(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderView, error) {
	if !actor.IsStaff {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff access required")
	}

	var view *OrderView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		items, err := repo.ListItems(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}

		subtotal := decimal.Zero
		for _, item := range items {
			subtotal = subtotal.Add(item.TotalPrice)
		}
		total := orderTotal(subtotal, order.TaxAmount, order.ShippingAmount, order.DiscountAmount)
		if total.IsNegative() {
			return negativeTotalError(total)
		}

		updates := map[string]any{
			"subtotal":     subtotal,
			"total_amount": total,
			"updated_at":   s.now().UTC(),
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order totals")
		}
		view, err = s.reload(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) loadOwnedOrder(ctx context.Context, repo Repository, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, mapOrderError(err)
	}
	if !actor.CanAccess(order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return order, nil
}

func (s *service) reload(ctx context.Context, repo Repository, orderID uuid.UUID) (*OrderView, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, mapOrderError(err)
	}
	return newOrderView(order), nil
}

func lockOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := repo.FindOrderForUpdate(ctx, orderID)
	if err != nil {
		return nil, mapOrderError(err)
	}
	return order, nil
}

func mapOrderError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func orderTotal(subtotal, tax, shipping, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Add(tax).Add(shipping).Sub(discount)
}

func negativeTotalError(total decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "order total cannot be negative").
		WithDetails(map[string]any{"field": "discountAmount", "totalAmount": total.StringFixed(2)})
}

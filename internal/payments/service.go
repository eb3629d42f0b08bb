package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionstore-backend/internal/orders"
	"github.com/angelmondragon/fashionstore-backend/pkg/auth"
	"github.com/angelmondragon/fashionstore-backend/pkg/db/models"
	"github.com/angelmondragon/fashionstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fashionstore-backend/pkg/errors"
	"github.com/angelmondragon/fashionstore-backend/pkg/logger"
	"github.com/angelmondragon/fashionstore-backend/pkg/metrics"
	"github.com/angelmondragon/fashionstore-backend/pkg/money"
	"github.com/angelmondragon/fashionstore-backend/pkg/outbox"
	"github.com/angelmondragon/fashionstore-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/fashionstore-backend/pkg/pagination"
)

const (
	defaultCurrency = "INR"

	reasonSignatureMismatch = "signature verification failed"
	// ReasonPaymentExpired is written on transactions closed by the expiry sweep.
	ReasonPaymentExpired = "payment window expired"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EventEmitter is the outbox write side the payment flows need.
type EventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service opens gateway payments for orders and settles them from checkout callbacks.
type Service interface {
	InitiatePayment(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*InitiatePaymentResult, error)
	VerifyPayment(ctx context.Context, actor auth.Actor, input VerifyPaymentInput) (bool, *TransactionView, error)
	ListTransactions(ctx context.Context, actor auth.Actor, userID uuid.UUID, params pagination.Params) (*TransactionList, error)
	PublicKey() string
	ExpirePending(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// ServiceParams wires the payment service.
type ServiceParams struct {
	Repo     Repository
	Orders   orders.Repository
	Gateway  Gateway
	Verifier SignatureVerifier
	Outbox   EventEmitter
	Tx       txRunner
	Logger   *logger.Logger
	Metrics  *metrics.CheckoutMetrics
	Currency string
	Now      func() time.Time
}

type service struct {
	repo     Repository
	orders   orders.Repository
	gateway  Gateway
	verifier SignatureVerifier
	outbox   EventEmitter
	tx       txRunner
	logg     *logger.Logger
	metrics  *metrics.CheckoutMetrics
	currency string
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Verifier == nil {
		return nil, fmt.Errorf("signature verifier required")
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
		repo:     params.Repo,
		orders:   params.Orders,
		gateway:  params.Gateway,
		verifier: params.Verifier,
		outbox:   params.Outbox,
		tx:       params.Tx,
		logg:     params.Logger,
		metrics:  params.Metrics,
		currency: strings.ToUpper(strings.TrimSpace(params.Currency)),
		now:      params.Now,
	}
	if svc.currency == "" {
		svc.currency = defaultCurrency
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

func (s *service) PublicKey() string {
	return s.gateway.KeyID()
}

// InitiatePayment opens a gateway order for the order total and records a
// PENDING transaction against it. The gateway call happens outside the DB
// transaction.
func (s *service) InitiatePayment(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*InitiatePaymentResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.orders.FindOrder(ctx, orderID)
	if err != nil {
		return nil, mapLookupError(err, "order not found")
	}
	if actor.UserID == uuid.Nil || actor.UserID != order.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the order owner can pay")
	}
	if err := ensurePayable(order); err != nil {
		return nil, err
	}
	amountMinor := money.ToMinorUnits(order.TotalAmount)
	if amountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive to pay").
			WithDetails(map[string]any{"totalAmount": money.Format(order.TotalAmount)})
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, GatewayOrderRequest{
		AmountMinor: amountMinor,
		Currency:    s.currency,
		Receipt:     order.OrderNumber,
		Notes:       map[string]string{"order_id": order.ID.String()},
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create gateway order")
	}
	if gwOrder.AmountMinor != 0 && gwOrder.AmountMinor != amountMinor {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway amount mismatch").
			WithDetails(map[string]any{"expected": amountMinor, "actual": gwOrder.AmountMinor})
	}

	var txn models.Transaction
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		locked, err := orderRepo.FindOrderForUpdate(ctx, order.ID)
		if err != nil {
			return mapLookupError(err, "order not found")
		}
		if err := ensurePayable(locked); err != nil {
			return err
		}
		now := s.now().UTC()
		if err := orderRepo.UpdateOrder(ctx, locked.ID, map[string]any{
			"gateway_order_id": gwOrder.ID,
			"updated_at":       now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store gateway order")
		}
		txn = models.Transaction{
			UserID:          locked.UserID,
			OrderID:         locked.ID,
			GatewayOrderID:  gwOrder.ID,
			Status:          enums.TransactionStatusPending,
			Amount:          locked.TotalAmount,
			Currency:        s.currency,
			GatewayResponse: gwOrder.Raw,
		}
		if err := s.repo.WithTx(tx).CreateTransaction(ctx, &txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create transaction")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"transaction_id":   txn.ID.String(),
		"gateway_order_id": gwOrder.ID,
	})
	s.logg.Info(logCtx, "payment initiated")

	return &InitiatePaymentResult{
		TransactionID:   txn.ID,
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		GatewayOrderRef: gwOrder.ID,
		Amount:          money.Format(order.TotalAmount),
		AmountMinor:     amountMinor,
		Currency:        s.currency,
		KeyID:           s.gateway.KeyID(),
	}, nil
}

// VerifyPayment settles or fails the transaction opened for the gateway order.
// A failed signature is a normal outcome and commits the FAILED state.
func (s *service) VerifyPayment(ctx context.Context, actor auth.Actor, input VerifyPaymentInput) (bool, *TransactionView, error) {
	input.GatewayOrderID = strings.TrimSpace(input.GatewayOrderID)
	input.GatewayPaymentID = strings.TrimSpace(input.GatewayPaymentID)
	input.Signature = strings.TrimSpace(input.Signature)
	if err := validateVerify(input); err != nil {
		return false, nil, err
	}

	var (
		verified bool
		result   string
		view     *TransactionView
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		txn, err := repo.FindByGatewayOrderForUpdate(ctx, input.GatewayOrderID)
		if err != nil {
			return mapLookupError(err, "transaction not found")
		}
		if !actor.CanAccess(txn.UserID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "transaction belongs to another user")
		}
		switch txn.Status {
		case enums.TransactionStatusSuccess:
			verified, result, view = true, "replayed", newTransactionView(txn)
			return nil
		case enums.TransactionStatusCancelled, enums.TransactionStatusRefunded:
			return pkgerrors.New(pkgerrors.CodeInvalidState, "transaction is closed").
				WithDetails(map[string]any{"status": txn.Status})
		}

		order, err := orderRepo.FindOrderForUpdate(ctx, txn.OrderID)
		if err != nil {
			return mapLookupError(err, "order not found")
		}

		now := s.now().UTC()
		verified = s.verifier.Verify(input.GatewayOrderID, input.GatewayPaymentID, input.Signature)
		updates := map[string]any{
			"gateway_payment_id": input.GatewayPaymentID,
			"gateway_signature":  input.Signature,
			"updated_at":         now,
		}
		paymentStatus := enums.PaymentStatusPaid
		eventType := enums.EventPaymentSettled
		reason := ""
		if verified {
			result = "success"
			updates["status"] = enums.TransactionStatusSuccess
			updates["completed_at"] = now
			updates["failure_reason"] = nil
		} else {
			result = "failed"
			reason = reasonSignatureMismatch
			paymentStatus = enums.PaymentStatusFailed
			eventType = enums.EventPaymentFailed
			updates["status"] = enums.TransactionStatusFailed
			updates["failure_reason"] = reason
		}
		if err := repo.UpdateTransaction(ctx, txn.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update transaction")
		}

		// a bad callback never downgrades an order another transaction already paid
		if verified || order.PaymentStatus != enums.PaymentStatusPaid {
			if err := orderRepo.UpdateOrder(ctx, order.ID, map[string]any{
				"payment_status": paymentStatus,
				"updated_at":     now,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment status")
			}
		}

		gatewayPaymentID := input.GatewayPaymentID
		event := outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   txn.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.PaymentStatusEvent{
				TransactionID:    txn.ID,
				OrderID:          txn.OrderID,
				UserID:           txn.UserID,
				GatewayOrderID:   txn.GatewayOrderID,
				GatewayPaymentID: &gatewayPaymentID,
				Status:           updates["status"].(enums.TransactionStatus),
				Amount:           money.Format(txn.Amount),
				Currency:         txn.Currency,
				Reason:           reason,
				OccurredAt:       now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment event")
		}

		updated, err := repo.FindForUpdate(ctx, txn.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload transaction")
		}
		view = newTransactionView(updated)
		return nil
	})
	if err != nil {
		return false, nil, err
	}

	s.metrics.IncPaymentVerification(result)
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, view.OrderID.String()), map[string]any{
		"transaction_id":   view.TransactionID.String(),
		"gateway_order_id": view.GatewayOrderID,
		"result":           result,
	})
	if verified {
		s.logg.Info(logCtx, "payment verified")
	} else {
		s.logg.Warn(logCtx, "payment verification failed")
	}
	return verified, view, nil
}

func (s *service) ListTransactions(ctx context.Context, actor auth.Actor, userID uuid.UUID, params pagination.Params) (*TransactionList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !actor.CanAccess(userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "transactions belong to another user")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
			WithDetails(map[string]any{"field": "cursor"})
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListByUser(ctx, userID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}

	list := &TransactionList{Transactions: make([]TransactionView, 0, len(rows))}
	if len(rows) > limit {
		last := rows[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:limit]
	}
	for i := range rows {
		list.Transactions = append(list.Transactions, *newTransactionView(&rows[i]))
	}
	return list, nil
}

// ExpirePending cancels PENDING transactions opened before cutoff. Each row
// is closed in its own transaction; failures are collected and returned
// together after the sweep.
func (s *service) ExpirePending(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = pagination.MaxLimit
	}
	rows, err := s.repo.FindPendingBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find stale transactions")
	}

	var (
		expired int
		errs    error
	)
	for _, row := range rows {
		closed, err := s.expireOne(ctx, row.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire transaction %s: %w", row.ID, err))
			continue
		}
		if closed {
			expired++
		}
	}
	return expired, errs
}

func (s *service) expireOne(ctx context.Context, id uuid.UUID) (bool, error) {
	closed := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		// verified or closed since the scan
		if txn.Status != enums.TransactionStatusPending {
			return nil
		}
		now := s.now().UTC()
		if err := repo.UpdateTransaction(ctx, txn.ID, map[string]any{
			"status":         enums.TransactionStatusCancelled,
			"failure_reason": ReasonPaymentExpired,
			"updated_at":     now,
		}); err != nil {
			return err
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventPaymentExpired,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   txn.ID,
			OccurredAt:    now,
			Data: payloads.PaymentStatusEvent{
				TransactionID:  txn.ID,
				OrderID:        txn.OrderID,
				UserID:         txn.UserID,
				GatewayOrderID: txn.GatewayOrderID,
				Status:         enums.TransactionStatusCancelled,
				Amount:         money.Format(txn.Amount),
				Currency:       txn.Currency,
				Reason:         ReasonPaymentExpired,
				OccurredAt:     now,
			},
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
			return err
		}
		closed = true
		return nil
	})
	return closed, err
}

func ensurePayable(order *models.Order) error {
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return pkgerrors.New(pkgerrors.CodeInvalidState, "order is already paid").
			WithDetails(map[string]any{"paymentStatus": order.PaymentStatus})
	}
	if orders.IsTerminal(order.Status) {
		return pkgerrors.New(pkgerrors.CodeInvalidState, "order can no longer be paid").
			WithDetails(map[string]any{"status": order.Status})
	}
	return nil
}

func validateVerify(input VerifyPaymentInput) error {
	switch {
	case input.GatewayOrderID == "":
		return fieldError("gatewayOrderId", "gateway order id is required")
	case input.GatewayPaymentID == "":
		return fieldError("gatewayPaymentId", "gateway payment id is required")
	case input.Signature == "":
		return fieldError("signature", "signature is required")
	}
	return nil
}

func mapLookupError(err error, notFound string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, notFound)
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment state")
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

package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionstore-backend/pkg/auth"
	"github.com/angelmondragon/fashionstore-backend/pkg/db/models"
	"github.com/angelmondragon/fashionstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fashionstore-backend/pkg/errors"
	"github.com/angelmondragon/fashionstore-backend/pkg/outbox"
	"github.com/angelmondragon/fashionstore-backend/pkg/outbox/payloads"
)

// mainChain ranks the forward fulfilment states.
var mainChain = map[enums.OrderStatus]int{
	enums.OrderStatusPending:        0,
	enums.OrderStatusConfirmed:      1,
	enums.OrderStatusProcessing:     2,
	enums.OrderStatusPacked:         3,
	enums.OrderStatusShipped:        4,
	enums.OrderStatusOutForDelivery: 5,
	enums.OrderStatusDelivered:      6,
}

var sideBranches = map[enums.OrderStatus]struct{}{
	enums.OrderStatusCancelled: {},
	enums.OrderStatusReturned:  {},
	enums.OrderStatusRefunded:  {},
}

// UpdateStatusInput is a staff request to move an order along.
type UpdateStatusInput struct {
	Status     enums.OrderStatus
	Notes      *string
	TrackingID *string
}

// SettlementPolicy returns the payment status an order carries once delivered.
type SettlementPolicy func(current enums.PaymentStatus) enums.PaymentStatus

// SettlePaymentOnDelivery marks every delivered order as paid.
func SettlePaymentOnDelivery(enums.PaymentStatus) enums.PaymentStatus {
	return enums.PaymentStatusPaid
}

// IsTerminal reports whether no further transition may leave status.
func IsTerminal(status enums.OrderStatus) bool {
	if status == enums.OrderStatusDelivered {
		return true
	}
	_, side := sideBranches[status]
	return side
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to enums.OrderStatus) bool {
	return validateTransition(from, to) == nil
}

func validateTransition(from, to enums.OrderStatus) error {
	details := map[string]any{"from": from, "to": to}
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"field": "status", "status": to})
	}
	if IsTerminal(from) {
		return pkgerrors.New(pkgerrors.CodeInvalidState, fmt.Sprintf("order is %s and can no longer change", from)).
			WithDetails(details)
	}
	if from == to {
		return pkgerrors.New(pkgerrors.CodeInvalidState, fmt.Sprintf("order is already %s", to)).
			WithDetails(details)
	}
	if _, side := sideBranches[to]; side {
		return nil
	}
	if mainChain[to] <= mainChain[from] {
		return pkgerrors.New(pkgerrors.CodeInvalidState, fmt.Sprintf("cannot move order from %s back to %s", from, to)).
			WithDetails(details)
	}
	return nil
}

func allowsTracking(to enums.OrderStatus) bool {
	rank, onChain := mainChain[to]
	return onChain && rank >= mainChain[enums.OrderStatusShipped]
}

func (s *service) UpdateStatus(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderView, error) {
	if !actor.IsStaff {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff access required")
	}
	input.Status = enums.OrderStatus(strings.ToUpper(strings.TrimSpace(string(input.Status))))
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"field": "status", "status": input.Status})
	}
	input.TrackingID = trimOptional(input.TrackingID)

	return s.applyTransition(ctx, actor, orderID, input, nil)
}

// CancelOrder moves an open order to CANCELLED on behalf of its owner or staff.
func (s *service) CancelOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID, reason string) (*OrderView, error) {
	if actor.UserID == uuid.Nil && !actor.IsStaff {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	input := UpdateStatusInput{Status: enums.OrderStatusCancelled, Notes: trimOptional(&reason)}
	ownerCheck := func(order *models.Order) error {
		if !actor.CanAccess(order.UserID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		}
		return nil
	}
	return s.applyTransition(ctx, actor, orderID, input, ownerCheck)
}

func (s *service) applyTransition(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input UpdateStatusInput, guard func(*models.Order) error) (*OrderView, error) {
	var (
		view *OrderView
		from enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(order); err != nil {
				return err
			}
		}
		from = order.Status
		if err := validateTransition(from, input.Status); err != nil {
			return err
		}
		if input.TrackingID != nil && !allowsTracking(input.Status) {
			return fieldError("trackingId", "tracking id is only accepted once the order ships")
		}

		now := s.now().UTC()
		paymentStatus := order.PaymentStatus
		updates := map[string]any{
			"status":     input.Status,
			"updated_at": now,
		}
		if input.TrackingID != nil {
			updates["tracking_id"] = *input.TrackingID
		}
		if input.Status == enums.OrderStatusDelivered {
			paymentStatus = s.settle(order.PaymentStatus)
			updates["delivered_at"] = now
			updates["payment_status"] = paymentStatus
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		note := fmt.Sprintf("Status changed from %s to %s", from, input.Status)
		if input.Notes != nil {
			note = *input.Notes
		}
		if err := repo.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:   order.ID,
			Status:    input.Status,
			Notes:     &note,
			CreatedBy: actor.Ref(),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert status history")
		}

		tracking := order.TrackingID
		if input.TrackingID != nil {
			tracking = input.TrackingID
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        order.UserID,
				From:          from,
				To:            input.Status,
				PaymentStatus: paymentStatus,
				TrackingID:    tracking,
				Notes:         note,
				ChangedAt:     now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status change")
		}

		view, err = s.reload(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(from), string(input.Status))
	logCtx := s.logg.WithOrderID(ctx, orderID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{"from": from, "to": input.Status})
	s.logg.Info(logCtx, "order status changed")
	return view, nil
}

package orders

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fashionstore-backend/internal/cart"
	"github.com/angelmondragon/fashionstore-backend/pkg/auth"
	"github.com/angelmondragon/fashionstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fashionstore-backend/pkg/errors"
	"github.com/angelmondragon/fashionstore-backend/pkg/outbox"
	"github.com/angelmondragon/fashionstore-backend/pkg/outbox/payloads"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		from, to enums.OrderStatus
		code     pkgerrors.Code
	}{
		{from: enums.OrderStatusPending, to: enums.OrderStatusConfirmed},
		{from: enums.OrderStatusPending, to: enums.OrderStatusShipped},
		{from: enums.OrderStatusPacked, to: enums.OrderStatusDelivered},
		{from: enums.OrderStatusOutForDelivery, to: enums.OrderStatusDelivered},
		{from: enums.OrderStatusPending, to: enums.OrderStatusCancelled},
		{from: enums.OrderStatusShipped, to: enums.OrderStatusReturned},
		{from: enums.OrderStatusProcessing, to: enums.OrderStatusRefunded},
		{from: enums.OrderStatusShipped, to: enums.OrderStatusProcessing, code: pkgerrors.CodeInvalidState},
		{from: enums.OrderStatusConfirmed, to: enums.OrderStatusPending, code: pkgerrors.CodeInvalidState},
		{from: enums.OrderStatusPacked, to: enums.OrderStatusPacked, code: pkgerrors.CodeInvalidState},
		{from: enums.OrderStatusDelivered, to: enums.OrderStatusReturned, code: pkgerrors.CodeInvalidState},
		{from: enums.OrderStatusCancelled, to: enums.OrderStatusConfirmed, code: pkgerrors.CodeInvalidState},
		{from: enums.OrderStatusReturned, to: enums.OrderStatusRefunded, code: pkgerrors.CodeInvalidState},
		{from: enums.OrderStatusRefunded, to: enums.OrderStatusCancelled, code: pkgerrors.CodeInvalidState},
		{from: enums.OrderStatusPending, to: enums.OrderStatus("LOST"), code: pkgerrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := validateTransition(tt.from, tt.to)
			if tt.code == "" {
				assert.NoError(t, err)
				assert.True(t, CanTransition(tt.from, tt.to))
				return
			}
			assert.True(t, pkgerrors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestIsTerminal(t *testing.T) {
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusDelivered, enums.OrderStatusCancelled, enums.OrderStatusReturned, enums.OrderStatusRefunded,
	} {
		assert.True(t, IsTerminal(status), status)
	}
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusPending, enums.OrderStatusConfirmed, enums.OrderStatusProcessing,
		enums.OrderStatusPacked, enums.OrderStatusShipped, enums.OrderStatusOutForDelivery,
	} {
		assert.False(t, IsTerminal(status), status)
	}
}

func TestUpdateStatusDeliveredSettlesPayment(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, f.actor, f.addr.ID)
	tracking := "  AWB123456  "

	shipped, err := f.svc.UpdateStatus(ctx, f.staff, order.OrderID, UpdateStatusInput{Status: enums.OrderStatusShipped, TrackingID: &tracking})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, shipped.Status)
	require.NotNil(t, shipped.TrackingID)
	assert.Equal(t, "AWB123456", *shipped.TrackingID)
	assert.Nil(t, shipped.DeliveredAt)
	assert.Equal(t, enums.PaymentStatusPending, shipped.PaymentStatus)

	delivered, err := f.svc.UpdateStatus(ctx, f.staff, order.OrderID, UpdateStatusInput{Status: enums.OrderStatusDelivered})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, delivered.Status)
	assert.Equal(t, enums.PaymentStatusPaid, delivered.PaymentStatus)
	require.NotNil(t, delivered.DeliveredAt)
	assert.True(t, delivered.DeliveredAt.Equal(fixedNow))
	assert.Equal(t, "AWB123456", *delivered.TrackingID)

	history, err := f.svc.GetStatusHistory(ctx, f.actor, order.OrderID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, enums.OrderStatusDelivered, history[2].Status)
	assert.Equal(t, "Status changed from SHIPPED to DELIVERED", *history[2].Notes)
	assert.Equal(t, &f.staff.UserID, history[2].CreatedBy)

	events, err := f.outbox.ListForAggregate(nil, enums.AggregateOrder, order.OrderID)
	require.NoError(t, err)
	var changes []payloads.OrderStatusChangedEvent
	for _, row := range events {
		if row.EventType != enums.EventOrderStatusChanged {
			continue
		}
		var envelope outbox.PayloadEnvelope
		require.NoError(t, json.Unmarshal(row.Payload, &envelope))
		var data payloads.OrderStatusChangedEvent
		require.NoError(t, json.Unmarshal(envelope.Data, &data))
		changes = append(changes, data)
	}
	require.Len(t, changes, 2)
	last := changes[0]
	if last.To != enums.OrderStatusDelivered {
		last = changes[1]
	}
	assert.Equal(t, enums.OrderStatusShipped, last.From)
	assert.Equal(t, enums.PaymentStatusPaid, last.PaymentStatus)
}

func TestUpdateStatusUsesSettlementPolicy(t *testing.T) {
	f := newOrderFixture(t, func(p *ServiceParams) {
		p.SettlePayment = func(current enums.PaymentStatus) enums.PaymentStatus { return current }
	})
	order := f.placeOrder(t, f.actor, f.addr.ID)

	delivered, err := f.svc.UpdateStatus(context.Background(), f.staff, order.OrderID, UpdateStatusInput{Status: enums.OrderStatusDelivered})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, delivered.PaymentStatus)
	assert.NotNil(t, delivered.DeliveredAt)
}

func TestUpdateStatusTerminalStatesReject(t *testing.T) {
	for _, terminal := range []enums.OrderStatus{
		enums.OrderStatusDelivered, enums.OrderStatusCancelled, enums.OrderStatusReturned, enums.OrderStatusRefunded,
	} {
		t.Run(string(terminal), func(t *testing.T) {
			f := newOrderFixture(t)
			ctx := context.Background()
			order := f.placeOrder(t, f.actor, f.addr.ID)
			_, err := f.svc.UpdateStatus(ctx, f.staff, order.OrderID, UpdateStatusInput{Status: terminal})
			require.NoError(t, err)

			_, err = f.svc.UpdateStatus(ctx, f.staff, order.OrderID, UpdateStatusInput{Status: enums.OrderStatusProcessing})
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))
			tracking := "AWB9"
			_, err = f.svc.UpdateStatus(ctx, f.staff, order.OrderID, UpdateStatusInput{Status: enums.OrderStatusConfirmed, TrackingID: &tracking})
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState), "terminal state wins over tracking validation")
			_, err = f.svc.CancelOrder(ctx, f.actor, order.OrderID, "changed my mind")
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))

			current, err := f.svc.GetOrder(ctx, f.actor, order.OrderID)
			require.NoError(t, err)
			assert.Equal(t, terminal, current.Status)
			history, err := f.svc.GetStatusHistory(ctx, f.actor, order.OrderID)
			require.NoError(t, err)
			assert.Len(t, history, 2)
		})
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, f.actor, f.addr.ID)
	tracking := "AWB1"

	_, err := f.svc.UpdateStatus(ctx, f.actor, order.OrderID, UpdateStatusInput{Status: enums.OrderStatusConfirmed})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.UpdateStatus(ctx, f.staff, order.OrderID, UpdateStatusInput{Status: enums.OrderStatusPacked, TrackingID: &tracking})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.UpdateStatus(ctx, f.staff, order.OrderID, UpdateStatusInput{Status: "teleported"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.UpdateStatus(ctx, f.staff, order.OrderID, UpdateStatusInput{Status: enums.OrderStatusPending})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))

	_, err = f.svc.UpdateStatus(ctx, f.staff, uuid.New(), UpdateStatusInput{Status: enums.OrderStatusConfirmed})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	note := "Packed at Jaipur hub"
	view, err := f.svc.UpdateStatus(ctx, f.staff, order.OrderID, UpdateStatusInput{Status: "packed", Notes: &note})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPacked, view.Status)
	history, err := f.svc.GetStatusHistory(ctx, f.staff, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, note, *history[len(history)-1].Notes)
}

func TestCancelOrder(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, f.actor, f.addr.ID)
	stranger := f.seed.User(false)

	_, err := f.svc.CancelOrder(ctx, auth.Actor{UserID: stranger.ID}, order.OrderID, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	cancelled, err := f.svc.CancelOrder(ctx, f.actor, order.OrderID, "ordered wrong size")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	history, err := f.svc.GetStatusHistory(ctx, f.actor, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "ordered wrong size", *history[len(history)-1].Notes)

	_, err = f.svc.CancelOrder(ctx, f.actor, order.OrderID, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))
}

// The add-then-overflow-then-checkout walk through the cart and the pipeline.
func TestCheckoutScenario(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	product := f.seed.Product("Mojari", "1499.00")
	f.seed.Stock(product.ID, "9", "black", 5)

	view, err := f.carts.AddItem(ctx, f.actor, f.user.ID, cart.AddItemInput{ProductID: product.ID, Size: "9", Color: "black", Quantity: 2})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)

	_, err = f.carts.AddItem(ctx, f.actor, f.user.ID, cart.AddItemInput{ProductID: product.ID, Size: "9", Color: "black", Quantity: 4})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	view, err = f.carts.GetOrCreateCart(ctx, f.actor, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Items[0].Quantity)

	order, err := f.svc.CreateOrder(ctx, f.actor, CreateOrderInput{ShippingAddressID: f.addr.ID})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, "2998.00", order.Subtotal)
	assert.Equal(t, "2998.00", order.TotalAmount)
}

package payments

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fashionstore-backend/internal/orders"
	"github.com/angelmondragon/fashionstore-backend/pkg/auth"
	"github.com/angelmondragon/fashionstore-backend/pkg/db"
	"github.com/angelmondragon/fashionstore-backend/pkg/db/dbtest"
	"github.com/angelmondragon/fashionstore-backend/pkg/db/models"
	"github.com/angelmondragon/fashionstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fashionstore-backend/pkg/errors"
	"github.com/angelmondragon/fashionstore-backend/pkg/logger"
	"github.com/angelmondragon/fashionstore-backend/pkg/metrics"
	"github.com/angelmondragon/fashionstore-backend/pkg/outbox"
	"github.com/angelmondragon/fashionstore-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/fashionstore-backend/pkg/pagination"
)

var fixedNow = time.Date(2026, time.March, 14, 10, 30, 0, 0, time.UTC)

type fakeGateway struct {
	calls []GatewayOrderRequest
	err   error
}

func (g *fakeGateway) CreateOrder(_ context.Context, req GatewayOrderRequest) (*GatewayOrder, error) {
	g.calls = append(g.calls, req)
	if g.err != nil {
		return nil, g.err
	}
	return &GatewayOrder{
		ID:          "order_" + uuid.NewString()[:8],
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Raw:         json.RawMessage(`{"status":"created"}`),
	}, nil
}

func (g *fakeGateway) KeyID() string { return "rzp_test_public" }

type fakeVerifier struct{ ok bool }

func (v fakeVerifier) Verify(_, _, _ string) bool { return v.ok }

type paymentFixture struct {
	client   *db.Client
	svc      Service
	gateway  *fakeGateway
	outbox   *outbox.Repository
	seed     *dbtest.Seeder
	registry *prometheus.Registry
	order    models.Order
	actor    auth.Actor
}

func newPaymentFixture(t *testing.T, verified bool) paymentFixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	outboxRepo := outbox.NewRepository(conn)
	gateway := &fakeGateway{}
	registry := prometheus.NewRegistry()

	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Orders:   orders.NewRepository(conn),
		Gateway:  gateway,
		Verifier: fakeVerifier{ok: verified},
		Outbox:   outbox.NewService(outboxRepo, nil),
		Tx:       client,
		Logger:   logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard}),
		Metrics:  metrics.NewCheckoutMetrics(registry),
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	seed := dbtest.NewSeeder(t, conn)
	user := seed.User(false)
	addr := seed.Address(user.ID)
	return paymentFixture{
		client:   client,
		svc:      svc,
		gateway:  gateway,
		outbox:   outboxRepo,
		seed:     seed,
		registry: registry,
		order:    seed.Order(user.ID, addr.ID, "1499.50"),
		actor:    auth.Actor{UserID: user.ID},
	}
}

func (f paymentFixture) loadOrder(t *testing.T) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, f.client.DB().First(&order, "id = ?", f.order.ID).Error)
	return order
}

func TestInitiatePaymentOpensGatewayOrder(t *testing.T) {
	f := newPaymentFixture(t, true)

	result, err := f.svc.InitiatePayment(context.Background(), f.actor, f.order.ID)
	require.NoError(t, err)

	require.Len(t, f.gateway.calls, 1)
	assert.Equal(t, int64(149950), f.gateway.calls[0].AmountMinor)
	assert.Equal(t, "INR", f.gateway.calls[0].Currency)
	assert.Equal(t, f.order.OrderNumber, f.gateway.calls[0].Receipt)

	assert.Equal(t, "1499.50", result.Amount)
	assert.Equal(t, int64(149950), result.AmountMinor)
	assert.Equal(t, "rzp_test_public", result.KeyID)
	assert.NotEmpty(t, result.GatewayOrderRef)

	order := f.loadOrder(t)
	require.NotNil(t, order.GatewayOrderID)
	assert.Equal(t, result.GatewayOrderRef, *order.GatewayOrderID)

	var txn models.Transaction
	require.NoError(t, f.client.DB().First(&txn, "id = ?", result.TransactionID).Error)
	assert.Equal(t, enums.TransactionStatusPending, txn.Status)
	assert.Equal(t, "1499.50", txn.Amount.StringFixed(2))
	assert.Equal(t, result.GatewayOrderRef, txn.GatewayOrderID)
}

func TestInitiatePaymentGuards(t *testing.T) {
	t.Run("stranger", func(t *testing.T) {
		f := newPaymentFixture(t, true)
		_, err := f.svc.InitiatePayment(context.Background(), auth.Actor{UserID: uuid.New()}, f.order.ID)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
		assert.Empty(t, f.gateway.calls)
	})
	t.Run("staff is not the payer", func(t *testing.T) {
		f := newPaymentFixture(t, true)
		_, err := f.svc.InitiatePayment(context.Background(), auth.Actor{UserID: uuid.New(), IsStaff: true}, f.order.ID)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	})
	t.Run("missing order", func(t *testing.T) {
		f := newPaymentFixture(t, true)
		_, err := f.svc.InitiatePayment(context.Background(), f.actor, uuid.New())
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	})
	t.Run("already paid", func(t *testing.T) {
		f := newPaymentFixture(t, true)
		require.NoError(t, f.client.DB().Model(&models.Order{}).Where("id = ?", f.order.ID).
			Update("payment_status", enums.PaymentStatusPaid).Error)
		_, err := f.svc.InitiatePayment(context.Background(), f.actor, f.order.ID)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))
		assert.Empty(t, f.gateway.calls)
	})
	t.Run("cancelled order", func(t *testing.T) {
		f := newPaymentFixture(t, true)
		require.NoError(t, f.client.DB().Model(&models.Order{}).Where("id = ?", f.order.ID).
			Update("status", enums.OrderStatusCancelled).Error)
		_, err := f.svc.InitiatePayment(context.Background(), f.actor, f.order.ID)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))
	})
	t.Run("gateway down", func(t *testing.T) {
		f := newPaymentFixture(t, true)
		f.gateway.err = errors.New("connection reset")
		_, err := f.svc.InitiatePayment(context.Background(), f.actor, f.order.ID)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

		var n int64
		require.NoError(t, f.client.DB().Model(&models.Transaction{}).Count(&n).Error)
		assert.Zero(t, n)
	})
}

func TestVerifyPaymentSettlesOrder(t *testing.T) {
	f := newPaymentFixture(t, true)
	initiated, err := f.svc.InitiatePayment(context.Background(), f.actor, f.order.ID)
	require.NoError(t, err)

	ok, view, err := f.svc.VerifyPayment(context.Background(), f.actor, VerifyPaymentInput{
		GatewayOrderID:   initiated.GatewayOrderRef,
		GatewayPaymentID: " pay_123 ",
		Signature:        "deadbeef",
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, enums.TransactionStatusSuccess, view.Status)
	require.NotNil(t, view.CompletedAt)
	assert.True(t, fixedNow.Equal(*view.CompletedAt))
	require.NotNil(t, view.GatewayPaymentID)
	assert.Equal(t, "pay_123", *view.GatewayPaymentID)
	assert.Nil(t, view.FailureReason)

	assert.Equal(t, enums.PaymentStatusPaid, f.loadOrder(t).PaymentStatus)

	events, err := f.outbox.ListForAggregate(nil, enums.AggregateTransaction, initiated.TransactionID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventPaymentSettled, events[0].EventType)
	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	var data payloads.PaymentStatusEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, f.order.ID, data.OrderID)
	assert.Equal(t, "1499.50", data.Amount)

	// a second callback for the same payment is a no-op
	ok, again, err := f.svc.VerifyPayment(context.Background(), f.actor, VerifyPaymentInput{
		GatewayOrderID:   initiated.GatewayOrderRef,
		GatewayPaymentID: "pay_123",
		Signature:        "deadbeef",
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, view.UpdatedAt, again.UpdatedAt)
	events, err = f.outbox.ListForAggregate(nil, enums.AggregateTransaction, initiated.TransactionID)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	assert.Equal(t, float64(1), verificationCount(t, f.registry, "success"))
	assert.Equal(t, float64(1), verificationCount(t, f.registry, "replayed"))
}

func TestVerifyPaymentBadSignatureFailsPayment(t *testing.T) {
	f := newPaymentFixture(t, false)
	initiated, err := f.svc.InitiatePayment(context.Background(), f.actor, f.order.ID)
	require.NoError(t, err)

	ok, view, err := f.svc.VerifyPayment(context.Background(), f.actor, VerifyPaymentInput{
		GatewayOrderID:   initiated.GatewayOrderRef,
		GatewayPaymentID: "pay_999",
		Signature:        "forged",
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, enums.TransactionStatusFailed, view.Status)
	require.NotNil(t, view.FailureReason)
	assert.Equal(t, reasonSignatureMismatch, *view.FailureReason)
	assert.Nil(t, view.CompletedAt)
	assert.Equal(t, enums.PaymentStatusFailed, f.loadOrder(t).PaymentStatus)

	events, err := f.outbox.ListForAggregate(nil, enums.AggregateTransaction, initiated.TransactionID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventPaymentFailed, events[0].EventType)
}

func TestVerifyPaymentGuards(t *testing.T) {
	f := newPaymentFixture(t, true)
	initiated, err := f.svc.InitiatePayment(context.Background(), f.actor, f.order.ID)
	require.NoError(t, err)

	tests := []struct {
		name  string
		actor auth.Actor
		input VerifyPaymentInput
		code  pkgerrors.Code
		field string
	}{
		{
			name:  "missing payment id",
			actor: f.actor,
			input: VerifyPaymentInput{GatewayOrderID: initiated.GatewayOrderRef, Signature: "x"},
			code:  pkgerrors.CodeValidation,
			field: "gatewayPaymentId",
		},
		{
			name:  "missing signature",
			actor: f.actor,
			input: VerifyPaymentInput{GatewayOrderID: initiated.GatewayOrderRef, GatewayPaymentID: "pay_1"},
			code:  pkgerrors.CodeValidation,
			field: "signature",
		},
		{
			name:  "unknown gateway order",
			actor: f.actor,
			input: VerifyPaymentInput{GatewayOrderID: "order_missing", GatewayPaymentID: "pay_1", Signature: "x"},
			code:  pkgerrors.CodeNotFound,
		},
		{
			name:  "stranger",
			actor: auth.Actor{UserID: uuid.New()},
			input: VerifyPaymentInput{GatewayOrderID: initiated.GatewayOrderRef, GatewayPaymentID: "pay_1", Signature: "x"},
			code:  pkgerrors.CodeForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.VerifyPayment(context.Background(), tt.actor, tt.input)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, tt.code, typed.Code())
			if tt.field != "" {
				assert.Equal(t, tt.field, typed.Details().(map[string]any)["field"])
			}
		})
	}
}

func TestVerifyPaymentRejectsExpiredTransaction(t *testing.T) {
	f := newPaymentFixture(t, true)
	f.seed.Transaction(f.order, "order_old", enums.TransactionStatusPending, fixedNow.Add(-2*time.Hour))

	expired, err := f.svc.ExpirePending(context.Background(), fixedNow.Add(-30*time.Minute), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	_, _, err = f.svc.VerifyPayment(context.Background(), f.actor, VerifyPaymentInput{
		GatewayOrderID: "order_old", GatewayPaymentID: "pay_1", Signature: "x",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))
	assert.Equal(t, enums.PaymentStatusPending, f.loadOrder(t).PaymentStatus)
}

func TestExpirePendingOnlyTouchesStaleRows(t *testing.T) {
	f := newPaymentFixture(t, true)
	stale := f.seed.Transaction(f.order, "order_stale", enums.TransactionStatusPending, fixedNow.Add(-time.Hour))
	fresh := f.seed.Transaction(f.order, "order_fresh", enums.TransactionStatusPending, fixedNow.Add(-5*time.Minute))
	failed := f.seed.Transaction(f.order, "order_failed", enums.TransactionStatusFailed, fixedNow.Add(-time.Hour))

	expired, err := f.svc.ExpirePending(context.Background(), fixedNow.Add(-30*time.Minute), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	statusOf := func(id uuid.UUID) models.Transaction {
		var txn models.Transaction
		require.NoError(t, f.client.DB().First(&txn, "id = ?", id).Error)
		return txn
	}
	got := statusOf(stale.ID)
	assert.Equal(t, enums.TransactionStatusCancelled, got.Status)
	require.NotNil(t, got.FailureReason)
	assert.Equal(t, ReasonPaymentExpired, *got.FailureReason)
	assert.Equal(t, enums.TransactionStatusPending, statusOf(fresh.ID).Status)
	assert.Equal(t, enums.TransactionStatusFailed, statusOf(failed.ID).Status)

	events, err := f.outbox.ListForAggregate(nil, enums.AggregateTransaction, stale.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventPaymentExpired, events[0].EventType)

	// second sweep finds nothing
	expired, err = f.svc.ExpirePending(context.Background(), fixedNow.Add(-30*time.Minute), 10)
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestListTransactions(t *testing.T) {
	f := newPaymentFixture(t, true)
	for i := 0; i < 3; i++ {
		f.seed.Transaction(f.order, "order_"+uuid.NewString()[:6], enums.TransactionStatusPending, fixedNow.Add(time.Duration(i)*time.Minute))
	}

	page, err := f.svc.ListTransactions(context.Background(), f.actor, f.actor.UserID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Transactions, 2)
	require.NotEmpty(t, page.NextCursor)
	assert.True(t, page.Transactions[0].CreatedAt.After(page.Transactions[1].CreatedAt))

	rest, err := f.svc.ListTransactions(context.Background(), f.actor, f.actor.UserID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Transactions, 1)
	assert.Empty(t, rest.NextCursor)

	_, err = f.svc.ListTransactions(context.Background(), auth.Actor{UserID: uuid.New()}, f.actor.UserID, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	staff := auth.Actor{UserID: uuid.New(), IsStaff: true}
	all, err := f.svc.ListTransactions(context.Background(), staff, f.actor.UserID, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, all.Transactions, 3)
}

func TestPublicKey(t *testing.T) {
	f := newPaymentFixture(t, true)
	assert.Equal(t, "rzp_test_public", f.svc.PublicKey())
}

func TestNewServiceRequiresDeps(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
}

func verificationCount(t *testing.T, reg *prometheus.Registry, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "payment_verifications_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "result" && label.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

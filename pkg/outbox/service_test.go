package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/fashionstore-backend/pkg/db/dbtest"
	"github.com/angelmondragon/fashionstore-backend/pkg/db/models"
	"github.com/angelmondragon/fashionstore-backend/pkg/enums"
)

func TestEmitWritesEnvelopeInsideTx(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)
	orderID := uuid.New()
	actorID := uuid.New()

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{UserID: actorID},
			Data:          map[string]string{"orderNumber": "ORD-2026-000001"},
		})
	})
	require.NoError(t, err)

	rows, err := repo.ListForAggregate(nil, enums.AggregateOrder, orderID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, actorID, envelope.Actor.UserID)
	assert.JSONEq(t, `{"orderNumber":"ORD-2026-000001"}`, string(envelope.Data))
}

func TestEmitRolledBackWithTx(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)
	orderID := uuid.New()
	boom := errors.New("later step failed")

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data:          map[string]string{},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	rows, err := repo.ListForAggregate(nil, enums.AggregateOrder, orderID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEmitRequiresTx(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, DomainEvent{})
	require.Error(t, err)
}

func TestEmitIfNotExistsDeduplicates(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)
	txnID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventPaymentExpired,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   txnID,
		Data:          map[string]string{"reason": "payment window expired"},
	}

	for i := 0; i < 2; i++ {
		err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, event)
		})
		require.NoError(t, err)
	}

	rows, err := repo.ListForAggregate(nil, enums.AggregateTransaction, txnID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestPublishLifecycle(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	dlq := NewDLQRepository(client.DB())
	svc := NewService(repo, nil)
	ctx := context.Background()

	ids := make([]uuid.UUID, 3)
	for i := range ids {
		ids[i] = uuid.New()
		err := client.WithTx(ctx, func(tx *gorm.DB) error {
			return svc.Emit(ctx, tx, DomainEvent{
				EventType:     enums.EventOrderStatusChanged,
				AggregateType: enums.AggregateOrder,
				AggregateID:   ids[i],
				Data:          map[string]int{"n": i},
			})
		})
		require.NoError(t, err)
	}

	var terminalID uuid.UUID
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		terminalID = rows[2].ID

		require.NoError(t, repo.MarkPublishedTx(tx, rows[0].ID))
		require.NoError(t, repo.MarkFailedTx(tx, rows[1].ID, errors.New("pubsub unavailable")))
		terminal := errors.New("bad payload")
		require.NoError(t, dlq.InsertTx(tx, models.OutboxDLQ{
			EventID:       rows[2].ID,
			EventType:     rows[2].EventType,
			AggregateType: rows[2].AggregateType,
			AggregateID:   rows[2].AggregateID,
			Payload:       rows[2].Payload,
			ErrorReason:   enums.OutboxDLQReasonNonRetryable,
			AttemptCount:  rows[2].AttemptCount,
			FailedAt:      time.Now().UTC(),
		}))
		return repo.MarkTerminalTx(tx, rows[2].ID, terminal, 3)
	})
	require.NoError(t, err)

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, 1, rows[0].AttemptCount)
		require.NotNil(t, rows[0].LastError)
		assert.Equal(t, "pubsub unavailable", *rows[0].LastError)
		return nil
	})
	require.NoError(t, err)

	parked, err := dlq.FindByEventID(ctx, terminalID)
	require.NoError(t, err)
	require.NotNil(t, parked)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, parked.ErrorReason)

	removed, err := repo.DeletePublishedBefore(nil, time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

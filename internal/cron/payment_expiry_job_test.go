package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/fashionstore-backend/pkg/logger"
)

type fakeExpirer struct {
	batches []int
	err     error
	cutoffs []time.Time
	limits  []int
}

func (f *fakeExpirer) ExpirePending(_ context.Context, cutoff time.Time, limit int) (int, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	f.limits = append(f.limits, limit)
	if len(f.batches) == 0 {
		return 0, f.err
	}
	n := f.batches[0]
	f.batches = f.batches[1:]
	return n, f.err
}

func newPaymentExpiryJob(t *testing.T, expirer *fakeExpirer, batch int) *paymentExpiryJob {
	t.Helper()
	jobIface, err := NewPaymentExpiryJob(PaymentExpiryJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Payments: expirer,
		Batch:    batch,
	})
	if err != nil {
		t.Fatalf("NewPaymentExpiryJob: %v", err)
	}
	return jobIface.(*paymentExpiryJob)
}

func TestPaymentExpiryJobUsesTTLCutoff(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	expirer := &fakeExpirer{batches: []int{3}}
	job := newPaymentExpiryJob(t, expirer, 0)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(expirer.cutoffs) != 1 {
		t.Fatalf("expected one sweep, got %d", len(expirer.cutoffs))
	}
	if want := now.Add(-defaultPaymentTTL); !expirer.cutoffs[0].Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, expirer.cutoffs[0])
	}
	if expirer.limits[0] != paymentExpiryBatch {
		t.Fatalf("expected batch %d, got %d", paymentExpiryBatch, expirer.limits[0])
	}
}

func TestPaymentExpiryJobDrainsFullBatches(t *testing.T) {
	expirer := &fakeExpirer{batches: []int{2, 2, 1}}
	job := newPaymentExpiryJob(t, expirer, 2)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := len(expirer.cutoffs); got != 3 {
		t.Fatalf("expected 3 sweeps, got %d", got)
	}
}

func TestPaymentExpiryJobReturnsCombinedErrors(t *testing.T) {
	combined := multierr.Combine(errors.New("row a"), errors.New("row b"))
	expirer := &fakeExpirer{batches: []int{1}, err: combined}
	job := newPaymentExpiryJob(t, expirer, 5)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if got := len(multierr.Errors(errors.Unwrap(err))); got != 2 {
		t.Fatalf("expected 2 combined errors, got %d", got)
	}
}

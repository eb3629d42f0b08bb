package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/fashionstore-backend/pkg/logger"
)

const (
	defaultPaymentTTL  = 30 * time.Minute
	paymentExpiryBatch = 100
)

// PaymentExpiryJobParams configure the stale payment sweep.
type PaymentExpiryJobParams struct {
	Logger   *logger.Logger
	Payments paymentExpirer
	TTL      time.Duration
	Batch    int
}

type paymentExpirer interface {
	ExpirePending(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// NewPaymentExpiryJob cancels PENDING transactions that outlived the payment window.
func NewPaymentExpiryJob(params PaymentExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPaymentTTL
	}
	batch := params.Batch
	if batch <= 0 {
		batch = paymentExpiryBatch
	}
	return &paymentExpiryJob{
		logg:     params.Logger,
		payments: params.Payments,
		ttl:      ttl,
		batch:    batch,
		now:      time.Now,
	}, nil
}

type paymentExpiryJob struct {
	logg     *logger.Logger
	payments paymentExpirer
	ttl      time.Duration
	batch    int
	now      func() time.Time
}

func (j *paymentExpiryJob) Name() string { return "payment-expiry" }

// Run keeps sweeping full batches until a short one comes back, so a backlog
// clears in one cycle. Per-row failures come back combined from ExpirePending.
func (j *paymentExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	total := 0
	for {
		expired, err := j.payments.ExpirePending(ctx, cutoff, j.batch)
		total += expired
		if err != nil {
			j.logg.Warn(j.logg.WithField(ctx, "transactions_expired", total), "payment expiry sweep stopped on errors")
			return fmt.Errorf("payment expiry: %w", err)
		}
		if expired < j.batch {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":               cutoff,
		"ttl_minutes":          j.ttl.Minutes(),
		"transactions_expired": total,
	})
	j.logg.Info(logCtx, "payment expiry sweep complete")
	return nil
}

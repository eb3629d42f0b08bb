package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCheckoutMetricsExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)

	m.ObserveCommit("success", 40*time.Millisecond)
	m.ObserveCommit("success", 10*time.Millisecond)
	m.ObserveCommit("VALIDATION_ERROR", time.Millisecond)
	m.IncOrderNumberRetry()
	m.IncTransition("PENDING", "CONFIRMED")
	m.IncPaymentVerification("failed")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "order_commits_total", "outcome", "success"); err != nil || got != 2 {
		t.Fatalf("expected 2 successful commits, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "order_commits_total", "outcome", "VALIDATION_ERROR"); err != nil || got != 1 {
		t.Fatalf("expected 1 rejected commit, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "order_status_transitions_total", "to", "CONFIRMED"); err != nil || got != 1 {
		t.Fatalf("expected 1 transition, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "payment_verifications_total", "result", "failed"); err != nil || got != 1 {
		t.Fatalf("expected 1 failed verification, got %f (%v)", got, err)
	}
	if mf := findMetricFamily(mfs, "order_number_retries_total"); mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatal("expected one order number retry")
	}
}

func TestNilCheckoutMetricsAreNoOps(t *testing.T) {
	var m *CheckoutMetrics
	m.ObserveCommit("success", time.Second)
	m.IncOrderNumberRetry()
	m.IncTransition("a", "b")
	m.IncPaymentVerification("success")

	NewCheckoutMetrics(nil).ObserveCommit("success", time.Second)
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records order commits, transitions and payment outcomes.
type CheckoutMetrics struct {
	commits      *prometheus.CounterVec
	commitTime   prometheus.Histogram
	numberRetry  prometheus.Counter
	transitions  *prometheus.CounterVec
	paymentCheck *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	commits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_commits_total",
		Help: "Order commit attempts by outcome code.",
	}, []string{"outcome"})
	commitTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_commit_duration_seconds",
		Help:    "Duration of the cart-to-order commit transaction.",
		Buckets: prometheus.DefBuckets,
	})
	numberRetry := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_number_retries_total",
		Help: "Commits retried after an order number collision.",
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Applied order status transitions.",
	}, []string{"from", "to"})
	paymentCheck := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verifications_total",
		Help: "Gateway signature verifications by result.",
	}, []string{"result"})
	reg.MustRegister(commits, commitTime, numberRetry, transitions, paymentCheck)
	return &CheckoutMetrics{
		commits:      commits,
		commitTime:   commitTime,
		numberRetry:  numberRetry,
		transitions:  transitions,
		paymentCheck: paymentCheck,
	}
}

// ObserveCommit records one finished commit. outcome is "success" or an error code.
func (c *CheckoutMetrics) ObserveCommit(outcome string, duration time.Duration) {
	if c == nil || c.commits == nil {
		return
	}
	c.commits.WithLabelValues(normalizeLabel(outcome)).Inc()
	c.commitTime.Observe(duration.Seconds())
}

// IncOrderNumberRetry counts a commit retried after a unique violation on order_number.
func (c *CheckoutMetrics) IncOrderNumberRetry() {
	if c == nil || c.numberRetry == nil {
		return
	}
	c.numberRetry.Inc()
}

// IncTransition counts an applied status change.
func (c *CheckoutMetrics) IncTransition(from, to string) {
	if c == nil || c.transitions == nil {
		return
	}
	c.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncPaymentVerification counts a verification by result ("success", "failed", "replayed").
func (c *CheckoutMetrics) IncPaymentVerification(result string) {
	if c == nil || c.paymentCheck == nil {
		return
	}
	c.paymentCheck.WithLabelValues(normalizeLabel(result)).Inc()
}

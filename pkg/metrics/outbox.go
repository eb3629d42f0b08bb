package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics counts dispatcher outcomes per event type.
type OutboxMetrics struct {
	outcomes *prometheus.CounterVec
	backlog  prometheus.Gauge
}

// NewOutboxMetrics registers the publisher metrics. A nil registerer yields a no-op recorder.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_total",
		Help: "Outbox rows handled by the publisher, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	backlog := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_last_batch_size",
		Help: "Rows claimed by the most recent publisher batch.",
	})
	reg.MustRegister(outcomes, backlog)
	return &OutboxMetrics{outcomes: outcomes, backlog: backlog}
}

// Observe records one row outcome: published, retry or dlq.
func (m *OutboxMetrics) Observe(eventType, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// SetBatch records the size of the batch just claimed.
func (m *OutboxMetrics) SetBatch(n int) {
	if m == nil || m.backlog == nil {
		return
	}
	m.backlog.Set(float64(n))
}

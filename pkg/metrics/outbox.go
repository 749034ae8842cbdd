package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	DispatchOutcomePublished  = "published"
	DispatchOutcomeRetry      = "retry"
	DispatchOutcomeDeadLetter = "dead_letter"
)

// OutboxMetrics counts dispatched outbox rows by event type and outcome.
type OutboxMetrics struct {
	dispatched *prometheus.CounterVec
	batches    prometheus.Counter
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	dispatched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_dispatched_total",
		Help: "Outbox rows handled by the dispatcher, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	batches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_batches_total",
		Help: "Non-empty outbox batches processed.",
	})
	reg.MustRegister(dispatched, batches)
	return &OutboxMetrics{dispatched: dispatched, batches: batches}
}

func (m *OutboxMetrics) Dispatched(eventType, outcome string) {
	if m == nil || m.dispatched == nil {
		return
	}
	m.dispatched.WithLabelValues(normalizeLabel(eventType), outcome).Inc()
}

func (m *OutboxMetrics) Batch() {
	if m == nil || m.batches == nil {
		return
	}
	m.batches.Inc()
}

package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts audit deliveries. Methods are no-ops on a nil receiver.
type Metrics struct {
	Emitted  *prometheus.CounterVec
	Failures prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Emitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agegate_audit_events_total",
			Help: "Audit events delivered to a sink, by action",
		}, []string{"action"}),
		Failures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agegate_audit_sink_failures_total",
			Help: "Audit events a sink failed to accept",
		}),
	}
}

func (m *Metrics) IncEmitted(action Action) {
	if m == nil {
		return
	}
	m.Emitted.WithLabelValues(string(action)).Inc()
}

func (m *Metrics) IncFailures() {
	if m == nil {
		return
	}
	m.Failures.Inc()
}

package flow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for flow steps. Methods are no-ops on a nil receiver.
type Metrics struct {
	Steps        *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Steps: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agegate_flow_steps_total",
			Help: "Verification flow steps by step and outcome",
		}, []string{"step", "outcome"}),
		StepDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agegate_flow_step_duration_ms",
			Help:    "Verification flow step latency in milliseconds, including upstream calls",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"step"}),
	}
}

func (m *Metrics) ObserveStep(step, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Steps.WithLabelValues(step, outcome).Inc()
	m.StepDuration.WithLabelValues(step).Observe(float64(d.Microseconds()) / 1000)
}

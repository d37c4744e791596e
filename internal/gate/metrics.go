package gate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for cart gate checks. Methods are no-ops on a nil receiver.
type Metrics struct {
	Checks          *prometheus.CounterVec
	CheckDuration   *prometheus.HistogramVec
	ItemsRemoved    prometheus.Counter
	RemovalFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Checks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agegate_gate_checks_total",
			Help: "Cart gate checks by mode and outcome",
		}, []string{"mode", "outcome"}),
		CheckDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agegate_gate_check_duration_ms",
			Help:    "Cart gate check latency in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"mode"}),
		ItemsRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agegate_gate_items_removed_total",
			Help: "Restricted cart lines removed by the filtering gate",
		}),
		RemovalFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agegate_gate_removal_failures_total",
			Help: "Restricted cart lines the filtering gate failed to remove",
		}),
	}
}

func (m *Metrics) ObserveCheck(mode Mode, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Checks.WithLabelValues(string(mode), outcome).Inc()
	m.CheckDuration.WithLabelValues(string(mode)).Observe(float64(d.Microseconds()) / 1000)
}

func (m *Metrics) AddRemoved(removed, failed int) {
	if m == nil {
		return
	}
	m.ItemsRemoved.Add(float64(removed))
	m.RemovalFailures.Add(float64(failed))
}

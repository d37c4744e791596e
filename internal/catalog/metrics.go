package catalog

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the catalog cache.
type Metrics struct {
	Refreshes       *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	RestrictedSKUs  prometheus.Gauge
	TokenMints      *prometheus.CounterVec
	TokenRetries    prometheus.Counter
}

// NewMetrics registers the catalog metrics with the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		Refreshes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agegate_catalog_refreshes_total",
			Help: "Catalog refresh attempts by outcome",
		}, []string{"outcome"}), // outcome: "ok", "error"

		RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "agegate_catalog_refresh_duration_seconds",
			Help:    "Duration of a full paged catalog refresh",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		RestrictedSKUs: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "agegate_catalog_restricted_skus",
			Help: "Number of SKUs in the live restricted set",
		}),

		TokenMints: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agegate_storefront_token_mints_total",
			Help: "Storefront API token mint attempts by outcome",
		}, []string{"outcome"}),

		TokenRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agegate_catalog_token_retries_total",
			Help: "Page fetches retried after the storefront token was rejected",
		}),
	}
}

func (m *Metrics) ObserveRefresh(outcome string, d time.Duration) {
	if m != nil {
		m.Refreshes.WithLabelValues(outcome).Inc()
		m.RefreshDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) SetRestrictedSKUs(n int) {
	if m != nil {
		m.RestrictedSKUs.Set(float64(n))
	}
}

func (m *Metrics) IncTokenMint(outcome string) {
	if m != nil {
		m.TokenMints.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncTokenRetry() {
	if m != nil {
		m.TokenRetries.Inc()
	}
}

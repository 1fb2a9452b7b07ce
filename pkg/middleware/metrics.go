// Package middleware provides the observability wrappers for the
// interaction layer: Prometheus metrics for dispatches, refreshes and
// sessions, and OpenTelemetry spans around dispatched actions.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "orderfood").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for action duration.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) { c.Namespace = namespace }
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) { c.ConstLabels = labels }
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) { c.Buckets = buckets }
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) { c.Registry = registry }
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "orderfood",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics records dispatch and refresh outcomes. It satisfies both the
// dispatch.Observer and refresh.Observer interfaces.
type Metrics struct {
	dispatchesTotal  *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	refreshesTotal   *prometheus.CounterVec
	activeSessions   prometheus.Gauge
}

// NewMetrics creates and registers the metrics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Metrics{
		dispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "dispatches_total",
			Help:        "Dispatched actions by kind and outcome.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind", "outcome"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Name:        "dispatch_duration_seconds",
			Help:        "Action duration from lock acquisition to settle.",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"kind"}),
		refreshesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "refreshes_total",
			Help:        "Refresh fetches by resource key and outcome.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"key", "outcome"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "active_sessions",
			Help:        "Currently connected live sessions.",
			ConstLabels: cfg.ConstLabels,
		}),
	}

	cfg.Registry.MustRegister(
		m.dispatchesTotal,
		m.dispatchDuration,
		m.refreshesTotal,
		m.activeSessions,
	)
	return m
}

// ObserveDispatch implements dispatch.Observer.
func (m *Metrics) ObserveDispatch(kind, outcome string, elapsed time.Duration) {
	m.dispatchesTotal.WithLabelValues(kind, outcome).Inc()
	if elapsed > 0 {
		m.dispatchDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}

// ObserveRefresh implements refresh.Observer.
func (m *Metrics) ObserveRefresh(key, outcome string) {
	m.refreshesTotal.WithLabelValues(key, outcome).Inc()
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() { m.activeSessions.Inc() }

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() { m.activeSessions.Dec() }

package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/statebox"
)

// MetricsConfig configures the Metrics observer.
type MetricsConfig struct {
	// Namespace prefixes every metric name. Default: "statebox".
	Namespace string

	// Subsystem is inserted between namespace and name. Default: empty.
	Subsystem string

	// ConstLabels are attached to every metric.
	ConstLabels prometheus.Labels

	// NotifiedBuckets are the histogram buckets for subscribers notified
	// per dispatch.
	NotifiedBuckets []float64
}

// MetricsOption configures MetricsConfig.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metric namespace.
func WithNamespace(ns string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = ns
	}
}

// WithSubsystem sets the metric subsystem.
func WithSubsystem(sub string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = sub
	}
}

// WithConstLabels attaches labels to every metric.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithNotifiedBuckets sets the notified-subscribers histogram buckets.
func WithNotifiedBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.NotifiedBuckets = buckets
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:       "statebox",
		NotifiedBuckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
	}
}

// Metrics counts dispatches in Prometheus collectors.
//
// Collected metrics:
//   - dispatches_total{action,outcome}: finished dispatches
//   - commits_total{action}: dispatches whose result was written
//   - rollbacks_total{action}: dispatches reverted by a subscriber
//   - notified_subscribers{action}: subscribers invoked per dispatch
//   - dispatch_depth: nesting depth of each dispatch
type Metrics struct {
	dispatches *prometheus.CounterVec
	commits    *prometheus.CounterVec
	rollbacks  *prometheus.CounterVec
	notified   *prometheus.HistogramVec
	depth      prometheus.Histogram
}

var _ statebox.Observer = (*Metrics)(nil)

// NewMetrics registers the dispatch collectors with reg. A nil reg creates
// the collectors without registering them.
func NewMetrics(reg prometheus.Registerer, opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(reg)

	return &Metrics{
		dispatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "dispatches_total",
				Help:        "Total number of finished dispatches",
				ConstLabels: config.ConstLabels,
			},
			[]string{"action", "outcome"},
		),
		commits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "commits_total",
				Help:        "Total number of dispatches whose result was written to the state",
				ConstLabels: config.ConstLabels,
			},
			[]string{"action"},
		),
		rollbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "rollbacks_total",
				Help:        "Total number of dispatches reverted by a subscriber",
				ConstLabels: config.ConstLabels,
			},
			[]string{"action"},
		),
		notified: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "notified_subscribers",
				Help:        "Subscribers invoked per dispatch",
				ConstLabels: config.ConstLabels,
				Buckets:     config.NotifiedBuckets,
			},
			[]string{"action"},
		),
		depth: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "dispatch_depth",
				Help:        "Nesting depth of dispatches",
				ConstLabels: config.ConstLabels,
				Buckets:     prometheus.LinearBuckets(0, 1, 8),
			},
		),
	}
}

// OnDispatch implements statebox.Observer.
func (m *Metrics) OnDispatch(rec statebox.Record) {
	m.dispatches.WithLabelValues(rec.Action, string(rec.Outcome)).Inc()
	if rec.Committed {
		m.commits.WithLabelValues(rec.Action).Inc()
	}
	if rec.Outcome == statebox.OutcomeRolledBack {
		m.rollbacks.WithLabelValues(rec.Action).Inc()
	}
	m.notified.WithLabelValues(rec.Action).Observe(float64(rec.Notified))
	m.depth.Observe(float64(rec.Depth))
}

package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/vgraph/pkg/graph"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "vgraph").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for operation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "vgraph",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is the Prometheus middleware. Create it with Prometheus.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	reads      *prometheus.CounterVec
	errors     *prometheus.CounterVec
}

// Prometheus creates middleware that records graph operation metrics on the
// configured registry. Creating two Metrics on the same registry panics, as
// with any duplicate Prometheus registration.
func Prometheus(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "operations_total",
			Help:        "Total number of graph operations",
			ConstLabels: config.ConstLabels,
		}, []string{"op", "status"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "operation_duration_seconds",
			Help:        "Graph operation duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"op"}),

		reads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reads_total",
			Help:        "Total number of successful reads by memo result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "errors_total",
			Help:        "Total number of failed graph operations by error class",
			ConstLabels: config.ConstLabels,
		}, []string{"op", "error_type"}),
	}
}

// Wrap implements graph.Middleware.
func (m *Metrics) Wrap(ctx context.Context, op *graph.Operation, next graph.Handler) (any, error) {
	kind := op.Kind.String()
	start := time.Now()

	v, err := next(ctx, op)

	m.duration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	status := "success"
	if err != nil {
		status = "error"
		m.errors.WithLabelValues(kind, categorizeError(err)).Inc()
	} else if op.Kind == graph.OpGet {
		result := "miss"
		if op.CacheHit {
			result = "hit"
		}
		m.reads.WithLabelValues(result).Inc()
	}
	m.operations.WithLabelValues(kind, status).Inc()

	return v, err
}

// categorizeError maps an error to a low-cardinality label.
func categorizeError(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, graph.ErrNotFound):
		return "not_found"
	case errors.Is(err, graph.ErrTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, graph.ErrMissingContext):
		return "missing_context"
	case errors.Is(err, graph.ErrNotInputNode):
		return "not_input"
	case errors.Is(err, ErrPanic):
		return "panic"
	default:
		return "provider"
	}
}

var _ graph.Middleware = (*Metrics)(nil)

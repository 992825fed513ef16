package middleware

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/switchyard/pkg/dispatch"
	"github.com/vango-dev/switchyard/pkg/render"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "switchyard").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
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
		Namespace: "switchyard",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// unmatchedRoute labels requests that matched no route, keeping the label
// set bounded.
const unmatchedRoute = "unmatched"

type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
	halts           *prometheus.CounterVec
	inFlight        prometheus.Gauge
	responseBytes   *prometheus.HistogramVec
}

// globalMetrics is created by the first call to Prometheus.
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of dispatched requests",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "route", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Dispatch duration in seconds, rendering included",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"method", "route"}),

		requestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "uncaught_errors_total",
			Help:        "Total number of requests that ended in an uncaught error",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "error_type"}),

		halts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "halts_total",
			Help:        "Total number of requests short-circuited by a halt",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "status"}),

		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_in_flight",
			Help:        "Number of requests being dispatched",
			ConstLabels: config.ConstLabels,
		}),

		responseBytes: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "response_body_bytes",
			Help:        "Response body size in bytes",
			ConstLabels: config.ConstLabels,
			Buckets:     prometheus.ExponentialBuckets(256, 4, 8), // 256B to 4MB
		}, []string{"route"}),
	}
}

// Prometheus creates middleware that records request metrics.
//
// Metrics collected:
//   - switchyard_requests_total: requests by method, route pattern and status
//   - switchyard_request_duration_seconds: dispatch duration histogram
//   - switchyard_uncaught_errors_total: uncaught failures by route and error type
//   - switchyard_halts_total: halted requests by route and halt status
//   - switchyard_requests_in_flight: requests currently being dispatched
//   - switchyard_response_body_bytes: body size histogram
//
// Example:
//
//	d := dispatch.New(dispatch.WithMiddleware(
//	    middleware.Prometheus(middleware.WithNamespace("shop")),
//	))
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) dispatch.Middleware {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	globalMetricsMu.Lock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	m := globalMetrics
	globalMetricsMu.Unlock()

	return dispatch.MiddlewareFunc(func(c *dispatch.Context, next func() error) error {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		start := time.Now()
		err := next()
		elapsed := time.Since(start).Seconds()

		method := c.Request.Method
		route := routeLabel(c)
		m.requestDuration.WithLabelValues(method, route).Observe(elapsed)
		m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Status())).Inc()
		m.responseBytes.WithLabelValues(route).Observe(float64(c.Response().Written()))
		if err != nil {
			m.requestErrors.WithLabelValues(route, categorizeError(err)).Inc()
		}
		if h := c.Halted(); h != nil {
			m.halts.WithLabelValues(route, haltStatus(c, h)).Inc()
		}
		return err
	})
}

func routeLabel(c *dispatch.Context) string {
	if r := c.Matched(); r != nil {
		return r.String()
	}
	return unmatchedRoute
}

// haltStatus labels a halt by its own status. A halt without one keeps the
// response status.
func haltStatus(c *dispatch.Context, h *dispatch.HaltError) string {
	if h.Status != 0 {
		return strconv.Itoa(h.Status)
	}
	return strconv.Itoa(c.Status())
}

// categorizeError maps an error to a bounded label value.
func categorizeError(err error) string {
	var p *dispatch.PanicError
	switch {
	case errors.As(err, &p):
		return "panic"
	case errors.Is(err, dispatch.ErrPassInFilter):
		return "pass_in_filter"
	case errors.Is(err, render.ErrRenderLoop):
		return "render_loop"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}

// Collector exposes the metric vectors for custom dashboards and tests.
type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec
	Halts           *prometheus.CounterVec
	InFlight        prometheus.Gauge
	ResponseBytes   *prometheus.HistogramVec
}

// GetMetrics returns the metrics created by Prometheus, or nil before the
// first call.
func GetMetrics() *Collector {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	if globalMetrics == nil {
		return nil
	}
	return &Collector{
		RequestsTotal:   globalMetrics.requestsTotal,
		RequestDuration: globalMetrics.requestDuration,
		RequestErrors:   globalMetrics.requestErrors,
		Halts:           globalMetrics.halts,
		InFlight:        globalMetrics.inFlight,
		ResponseBytes:   globalMetrics.responseBytes,
	}
}

package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vango-dev/switchyard/pkg/dispatch"
	"github.com/vango-dev/switchyard/pkg/render"
)

func resetGlobalMetricsForTest() {
	globalMetricsMu.Lock()
	globalMetrics = nil
	globalMetricsMu.Unlock()
}

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func quietDispatcher(opts ...dispatch.Option) *dispatch.Dispatcher {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	return dispatch.New(append([]dispatch.Option{dispatch.WithLogger(quiet)}, opts...)...)
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestPrometheus_RecordsRequests(t *testing.T) {
	resetGlobalMetricsForTest()
	reg := prometheus.NewRegistry()

	d := quietDispatcher(dispatch.WithMiddleware(Prometheus(WithRegistry(reg), WithNamespace("test"))))
	d.Get("/users/:id", func(c *dispatch.Context) (any, error) {
		return "user " + c.Param("id"), nil
	})
	d.Get("/boom", func(*dispatch.Context) (any, error) {
		return nil, errors.New("boom")
	})
	d.Get("/halt", func(*dispatch.Context) (any, error) {
		return nil, dispatch.HaltStatus(http.StatusForbidden)
	})

	serve(d, http.MethodGet, "/users/1")
	serve(d, http.MethodGet, "/users/2")
	serve(d, http.MethodGet, "/boom")
	serve(d, http.MethodGet, "/halt")
	serve(d, http.MethodGet, "/nothing")

	c := GetMetrics()
	if c == nil {
		t.Fatal("expected GetMetrics to return collector after initialization")
	}

	tests := []struct {
		labels []string
		want   float64
	}{
		{[]string{"GET", "/users/:id", "200"}, 2},
		{[]string{"GET", "/boom", "500"}, 1},
		{[]string{"GET", "/halt", "403"}, 1},
		{[]string{"GET", unmatchedRoute, "404"}, 1},
	}
	for _, tt := range tests {
		if got := metricCounterValue(t, c.RequestsTotal.WithLabelValues(tt.labels...)); got != tt.want {
			t.Errorf("requests_total%v = %v, want %v", tt.labels, got, tt.want)
		}
	}

	if got := metricCounterValue(t, c.RequestErrors.WithLabelValues("/boom", "internal")); got != 1 {
		t.Errorf("uncaught_errors_total(/boom) = %v, want 1", got)
	}
	if got := metricCounterValue(t, c.RequestErrors.WithLabelValues("/halt", "internal")); got != 0 {
		t.Errorf("halts must not count as errors, got %v", got)
	}
	if got := metricCounterValue(t, c.Halts.WithLabelValues("/halt", "403")); got != 1 {
		t.Errorf("halts_total(/halt, 403) = %v, want 1", got)
	}
	if got := metricCounterValue(t, c.Halts.WithLabelValues("/users/:id", "200")); got != 0 {
		t.Errorf("normal requests must not count as halts, got %v", got)
	}
	if got := metricHistogramCount(t, c.RequestDuration.WithLabelValues("GET", "/users/:id")); got != 2 {
		t.Errorf("request_duration_seconds count = %d, want 2", got)
	}
	if got := metricGaugeValue(t, c.InFlight); got != 0 {
		t.Errorf("requests_in_flight = %v after requests finished", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "test_requests_total" {
			found = true
		}
	}
	if !found {
		t.Error("test_requests_total not registered on the given registry")
	}
}

func TestPrometheus_InitializesOnce(t *testing.T) {
	resetGlobalMetricsForTest()
	reg := prometheus.NewRegistry()

	Prometheus(WithRegistry(reg))
	first := GetMetrics()
	Prometheus(WithRegistry(reg))
	if GetMetrics().RequestsTotal != first.RequestsTotal {
		t.Error("second Prometheus call re-created the metrics")
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&dispatch.PanicError{Value: "x"}, "panic"},
		{dispatch.ErrPassInFilter, "pass_in_filter"},
		{render.ErrRenderLoop, "render_loop"},
		{errors.New("whatever"), "internal"},
	}
	for _, tt := range tests {
		if got := categorizeError(tt.err); got != tt.want {
			t.Errorf("categorizeError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

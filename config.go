package switchyard

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/switchyard/internal/config"
	"github.com/vango-dev/switchyard/pkg/dispatch"
	"github.com/vango-dev/switchyard/pkg/render"
)

// Config is the code-level configuration for an App.
type Config struct {
	// Name identifies the service in logs.
	Name string

	// DevMode writes uncaught errors and stack traces into 500 responses.
	// SECURITY: never enable in production.
	DevMode bool

	// CanonicalPaths redirects non-canonical request paths (308) and rejects
	// invalid ones (400) before matching.
	CanonicalPaths bool

	// Logger is the structured logger. If nil, slog.Default() is used.
	Logger *slog.Logger

	Metrics MetricsConfig
	Tracing TracingConfig
	Server  ServerConfig

	// WebSockets registers the WebSocket upgrade renderer.
	WebSockets bool

	// Renderers are consulted before the built-in render rules.
	Renderers []render.Renderer

	// ErrorHandler turns action errors into results. Nil rethrows.
	ErrorHandler dispatch.ErrorHandler

	// Fallback serves requests no route matched, e.g. a legacy handler.
	Fallback http.Handler
}

// MetricsConfig configures Prometheus instrumentation.
type MetricsConfig struct {
	Enabled   bool
	Namespace string

	// Path serves the metrics endpoint. Empty disables the endpoint while
	// still collecting.
	Path string

	// Registry receives the collectors and backs the endpoint. If nil, the
	// global registry is used.
	Registry *prometheus.Registry
}

// TracingConfig configures OpenTelemetry spans.
type TracingConfig struct {
	Enabled    bool
	TracerName string

	// Provider overrides the global tracer provider.
	Provider trace.TracerProvider
}

// ServerConfig holds the HTTP server settings used by Run.
type ServerConfig struct {
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Name: "switchyard",
		Metrics: MetricsConfig{
			Namespace: config.DefaultMetricsNamespace,
			Path:      config.DefaultMetricsPath,
		},
		Tracing: TracingConfig{
			TracerName: config.DefaultTracerName,
		},
		Server: DefaultServerConfig(),
	}
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ShutdownTimeout:   30 * time.Second,
	}
}

// ConfigFromFile converts a loaded switchyard.json into a Config. The logger
// writes to stderr in the configured level and format.
func ConfigFromFile(fc *config.Config) (Config, error) {
	level, err := fc.LogLevel()
	if err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	cfg.Name = fc.Name
	cfg.DevMode = fc.DevMode
	cfg.CanonicalPaths = fc.CanonicalPaths
	cfg.Logger = NewLogger(os.Stderr, fc.Log.Format, level).With("service", fc.Name)
	cfg.Metrics.Enabled = fc.Metrics.Enabled
	cfg.Metrics.Namespace = fc.Metrics.Namespace
	cfg.Metrics.Path = fc.Metrics.Path
	cfg.Tracing.Enabled = fc.Tracing.Enabled
	cfg.Tracing.TracerName = fc.Tracing.TracerName
	return cfg, nil
}

// NewLogger builds a text or JSON slog logger.
func NewLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

package switchyard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/switchyard/pkg/dispatch"
	"github.com/vango-dev/switchyard/pkg/middleware"
	"github.com/vango-dev/switchyard/pkg/render"
	"github.com/vango-dev/switchyard/pkg/wsrender"
)

// App is a Dispatcher with observability and serving wired from a Config.
// Routes are registered with the embedded Dispatcher's methods.
//
//	app := switchyard.New(switchyard.Config{
//	    Metrics: switchyard.MetricsConfig{Enabled: true, Path: "/metrics"},
//	})
//	app.Get("/orders/:id", showOrder)
//	app.Run(":8080")
type App struct {
	*dispatch.Dispatcher

	config Config
	logger *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
}

// New creates an App. Extra dispatch options are applied after the ones
// derived from cfg.
func New(cfg Config, opts ...dispatch.Option) *App {
	defaults := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = defaults.Name
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = defaults.Metrics.Namespace
	}
	if cfg.Tracing.TracerName == "" {
		cfg.Tracing.TracerName = defaults.Tracing.TracerName
	}
	if cfg.Server == (ServerConfig{}) {
		cfg.Server = defaults.Server
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var mw []dispatch.Middleware
	if cfg.Tracing.Enabled {
		topts := []middleware.OTelOption{middleware.WithTracerName(cfg.Tracing.TracerName)}
		if cfg.Tracing.Provider != nil {
			topts = append(topts, middleware.WithTracerProvider(cfg.Tracing.Provider))
		}
		mw = append(mw, middleware.OpenTelemetry(topts...))
	}
	if cfg.Metrics.Enabled {
		mopts := []middleware.MetricsOption{middleware.WithNamespace(cfg.Metrics.Namespace)}
		if cfg.Metrics.Registry != nil {
			mopts = append(mopts, middleware.WithRegistry(cfg.Metrics.Registry))
		}
		mw = append(mw, middleware.Prometheus(mopts...))
	}

	dopts := []dispatch.Option{
		dispatch.WithLogger(logger),
		dispatch.WithDevMode(cfg.DevMode),
		dispatch.WithCanonicalPaths(cfg.CanonicalPaths),
		dispatch.WithMiddleware(mw...),
	}
	if cfg.ErrorHandler != nil {
		dopts = append(dopts, dispatch.WithErrorHandler(cfg.ErrorHandler))
	}
	if cfg.Fallback != nil {
		dopts = append(dopts, dispatch.WithFallback(cfg.Fallback))
	}
	if cfg.WebSockets {
		dopts = append(dopts, dispatch.WithRenderer(wsrender.New(wsrender.WithLogger(logger))))
	}
	for _, r := range cfg.Renderers {
		dopts = append(dopts, dispatch.WithRenderer(r))
	}

	a := &App{
		Dispatcher: dispatch.New(append(dopts, opts...)...),
		config:     cfg,
		logger:     logger,
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Path != "" {
		var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
		if cfg.Metrics.Registry != nil {
			gatherer = cfg.Metrics.Registry
		}
		a.Get(cfg.Metrics.Path, Handler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return a
}

// Handler adapts an http.Handler into an action. The handler writes the
// response itself.
func Handler(h http.Handler) dispatch.Action {
	return func(c *dispatch.Context) (any, error) {
		h.ServeHTTP(c.Response(), c.Request)
		return render.Unit, nil
	}
}

// Config returns the app configuration.
func (a *App) Config() Config {
	return a.config
}

// Logger returns the app logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Mount serves the app under prefix on a chi router. The prefix is stripped
// before dispatch, so routes are registered relative to it.
func (a *App) Mount(r chi.Router, prefix string) {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		r.Mount("/", a)
		return
	}
	r.Mount(prefix, stripPrefix(prefix, a))
}

func stripPrefix(prefix string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := *r.URL
		u.Path = strings.TrimPrefix(u.Path, prefix)
		u.RawPath = strings.TrimPrefix(u.RawPath, prefix)
		if u.Path == "" {
			u.Path = "/"
		}
		r2 := r.Clone(r.Context())
		r2.URL = &u
		h.ServeHTTP(w, r2)
	})
}

// Run listens on addr and blocks until the server fails or an interrupt or
// SIGTERM triggers a graceful shutdown.
func (a *App) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a,
		ReadHeaderTimeout: a.config.Server.ReadHeaderTimeout,
		ReadTimeout:       a.config.Server.ReadTimeout,
		WriteTimeout:      a.config.Server.WriteTimeout,
		IdleTimeout:       a.config.Server.IdleTimeout,
	}
	return a.Serve(srv)
}

// Serve runs srv with the app's graceful shutdown handling. srv.Handler is
// used as given, so callers can front the app with a router.
func (a *App) Serve(srv *http.Server) error {
	a.mu.Lock()
	a.httpServer = srv
	a.mu.Unlock()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", "address", srv.Addr, "name", a.config.Name)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-shutdown:
		a.logger.Info("shutting down...")
		return a.Shutdown(context.Background())
	}
}

// Shutdown gracefully stops a server started by Run or Serve.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	srv := a.httpServer
	a.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.logger.Error("shutdown error", "error", err)
		return err
	}
	a.logger.Info("server shutdown complete")
	return nil
}

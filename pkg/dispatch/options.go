package dispatch

import (
	"log/slog"
	"net/http"

	"github.com/vango-dev/switchyard/pkg/render"
)

// ErrorHandler turns an action error into a result. Returning an error
// (the default returns err unchanged) renders a 500.
type ErrorHandler func(c *Context, err error) (any, error)

// MethodNotAllowedHandler produces the result when the path matches routes of
// other methods only. allowed is in registration order.
type MethodNotAllowedHandler func(c *Context, allowed []string) (any, error)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithDevMode makes uncaught failures write the error and stack as the body.
func WithDevMode(on bool) Option {
	return func(d *Dispatcher) { d.devMode = on }
}

// WithErrorHandler sets the handler for action, filter and render errors.
func WithErrorHandler(h ErrorHandler) Option {
	return func(d *Dispatcher) {
		if h != nil {
			d.errorHandler = h
		}
	}
}

// WithNotFound sets the action run when nothing matches.
func WithNotFound(a Action) Option {
	return func(d *Dispatcher) { d.notFoundHandler = a }
}

// WithMethodNotAllowed sets the handler run when only other methods match.
func WithMethodNotAllowed(h MethodNotAllowedHandler) Option {
	return func(d *Dispatcher) {
		if h != nil {
			d.methodNotAllowed = h
		}
	}
}

// WithFallback serves unmatched requests with h, typically the next handler
// of a host router. It is ignored when WithNotFound is set.
func WithFallback(h http.Handler) Option {
	return func(d *Dispatcher) { d.fallback = h }
}

// WithRenderer adds a render pipeline extension.
func WithRenderer(r render.Renderer) Option {
	return func(d *Dispatcher) { d.renderers = append(d.renderers, r) }
}

// WithAsyncExecutable decides which Awaitable results are awaited before
// rendering. By default all are.
func WithAsyncExecutable(fn func(result any) bool) Option {
	return func(d *Dispatcher) { d.isAsyncExecutable = fn }
}

// WithMiddleware appends middleware around every dispatch.
func WithMiddleware(mw ...Middleware) Option {
	return func(d *Dispatcher) { d.middleware = append(d.middleware, mw...) }
}

// WithCanonicalPaths redirects non-canonical paths with 308 and rejects
// malformed ones with 400 before dispatch.
func WithCanonicalPaths(on bool) Option {
	return func(d *Dispatcher) { d.canonicalPaths = on }
}

// WithMaxRenderSteps bounds the render loop. Zero uses render.DefaultMaxSteps.
func WithMaxRenderSteps(n int) Option {
	return func(d *Dispatcher) { d.maxSteps = n }
}

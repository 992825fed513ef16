package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	swerrors "github.com/vango-dev/switchyard/internal/errors"
	"github.com/vango-dev/switchyard/pkg/render"
	"github.com/vango-dev/switchyard/pkg/route"
	"github.com/vango-dev/switchyard/pkg/routepath"
)

// maxHaltDepth is how many halts may nest while a halt is being rendered.
const maxHaltDepth = 2

// Dispatcher is an http.Handler that dispatches requests to registered
// routes. Register routes before serving; the registry tolerates later
// changes but requests in flight keep the routes they already looked up.
type Dispatcher struct {
	routes *Registry
	logger *slog.Logger

	devMode           bool
	canonicalPaths    bool
	maxSteps          int
	errorHandler      ErrorHandler
	notFoundHandler   Action
	methodNotAllowed  MethodNotAllowedHandler
	fallback          http.Handler
	renderers         []render.Renderer
	isAsyncExecutable func(result any) bool
	middleware        []Middleware
}

// New returns a Dispatcher with an empty registry.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		routes:           NewRegistry(),
		logger:           slog.Default(),
		errorHandler:     rethrow,
		methodNotAllowed: allowHeader,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func rethrow(_ *Context, err error) (any, error) {
	return nil, err
}

func allowHeader(c *Context, allowed []string) (any, error) {
	c.SetStatus(http.StatusMethodNotAllowed)
	c.Header().Set("Allow", strings.Join(allowed, ", "))
	return render.Unit, nil
}

// Routes returns the registry.
func (d *Dispatcher) Routes() *Registry {
	return d.routes
}

// Handle registers action for method behind matchers.
func (d *Dispatcher) Handle(method string, action Action, matchers ...route.Matcher) *Route {
	r := NewRoute(action, matchers...)
	d.routes.AddRoute(method, r)
	return r
}

func (d *Dispatcher) handlePattern(method, pattern string, action Action) *Route {
	return d.Handle(method, action, route.Pattern(pattern))
}

// Get registers a GET route. HEAD requests use it unless a HEAD route exists.
func (d *Dispatcher) Get(pattern string, action Action) *Route {
	return d.handlePattern(http.MethodGet, pattern, action)
}

// Post registers a POST route.
func (d *Dispatcher) Post(pattern string, action Action) *Route {
	return d.handlePattern(http.MethodPost, pattern, action)
}

// Put registers a PUT route.
func (d *Dispatcher) Put(pattern string, action Action) *Route {
	return d.handlePattern(http.MethodPut, pattern, action)
}

// Patch registers a PATCH route.
func (d *Dispatcher) Patch(pattern string, action Action) *Route {
	return d.handlePattern(http.MethodPatch, pattern, action)
}

// Delete registers a DELETE route.
func (d *Dispatcher) Delete(pattern string, action Action) *Route {
	return d.handlePattern(http.MethodDelete, pattern, action)
}

// Head registers a HEAD route.
func (d *Dispatcher) Head(pattern string, action Action) *Route {
	return d.handlePattern(http.MethodHead, pattern, action)
}

// Options registers an OPTIONS route.
func (d *Dispatcher) Options(pattern string, action Action) *Route {
	return d.handlePattern(http.MethodOptions, pattern, action)
}

// Before registers a before-filter. With no matchers it runs for every path.
func (d *Dispatcher) Before(action Action, matchers ...route.Matcher) *Route {
	r := NewRoute(action, matchers...)
	d.routes.AddBefore(r)
	return r
}

// After registers an after-filter. With no matchers it runs for every path.
func (d *Dispatcher) After(action Action, matchers ...route.Matcher) *Route {
	r := NewRoute(action, matchers...)
	d.routes.AddAfter(r)
	return r
}

// StatusRange registers action for response statuses lo through hi.
//
// The status route's result replaces whatever produced the status. When it
// handles a halt, the halt's status is not applied: the response status is
// the one current when the halt was raised (200 unless an action set it)
// unless the status route sets one, e.g. by returning render.Forbidden(body).
func (d *Dispatcher) StatusRange(lo, hi int, action Action, matchers ...route.Matcher) *Route {
	r := NewRoute(action, matchers...)
	d.routes.AddStatusRoute(lo, hi, r)
	return r
}

// Status registers action for a single response status. See StatusRange for
// how the response status is chosen.
func (d *Dispatcher) Status(code int, action Action, matchers ...route.Matcher) *Route {
	return d.StatusRange(code, code, action, matchers...)
}

// Remove unregisters a method route.
func (d *Dispatcher) Remove(method string, r *Route) bool {
	return d.routes.RemoveRoute(method, r)
}

// ServeHTTP dispatches one request.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if d.canonicalPaths && !d.canonicalize(w, r) {
		return
	}

	c := newContext(w, r, r.URL.EscapedPath(), d.logger)
	defer func() {
		if v := recover(); v != nil {
			if v == http.ErrAbortHandler {
				panic(v)
			}
			c.logger.Error("dispatch panicked", "panic", v, "stack", string(debug.Stack()))
			if !c.res.Committed() {
				c.res.SetStatus(http.StatusInternalServerError)
			}
		}
		c.res.Commit()
	}()

	var dispatched bool
	err := ComposeMiddleware(c, d.middleware, func() error {
		dispatched = true
		d.execute(c)
		return c.uncaught
	})
	if err != nil && !dispatched {
		d.handle(c, func() (any, error) { return nil, err })
	}
}

// canonicalize redirects or rejects non-canonical paths. It reports whether
// dispatch should continue.
func (d *Dispatcher) canonicalize(w http.ResponseWriter, r *http.Request) bool {
	target, changed, err := routepath.Canonical(r)
	switch {
	case err != nil:
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return false
	case changed:
		http.Redirect(w, r, target, http.StatusPermanentRedirect)
		return false
	}
	return true
}

// execute runs the request through filters, routes and rendering.
func (d *Dispatcher) execute(c *Context) {
	d.handle(c, func() (any, error) { return d.runActions(c) })
}

// handle runs body in the halt/error cradle and renders its result unless a
// halt or failure path already did.
func (d *Dispatcher) handle(c *Context, body func() (any, error)) {
	result, rendered := d.cradle(c, body, func(err error) (any, bool) {
		return d.cradle(c, func() (any, error) {
			return d.errorHandler(c, err)
		}, func(err error) (any, bool) {
			d.renderUncaught(c, err)
			return nil, true
		})
	})
	if !rendered {
		d.renderResponse(c, result)
	}
}

// cradle runs body. Halts are rendered here, preferring a status route for
// the halt status. Other errors go to onError.
func (d *Dispatcher) cradle(c *Context, body func() (any, error), onError func(error) (any, bool)) (any, bool) {
	result, err := protect(body)
	if err == nil {
		return result, false
	}

	var h *HaltError
	if !errors.As(err, &h) {
		return onError(err)
	}
	c.halted = h
	c.logger.Debug("request halted", "status", h.Status, "reason", h.Reason)

	status := h.Status
	if status == 0 {
		status = c.Status()
	}
	res, ok, err := d.runStatusRoute(c, status)
	if err == nil {
		if ok {
			render.Release(h.Body)
			d.renderResponse(c, res)
		} else {
			d.renderHalt(c, h)
		}
		return nil, true
	}
	render.Release(h.Body)
	if errors.As(err, &h) {
		c.halted = h
		d.renderHalt(c, h)
		return nil, true
	}
	return onError(err)
}

// runActions is the routing stage: before-filters, the first route that does
// not pass, the status override and the 405/404 fallbacks.
func (d *Dispatcher) runActions(c *Context) (any, error) {
	if c.prehandleErr != nil {
		return nil, c.prehandleErr
	}
	c.afterArmed = true

	if err := d.runFilters(c, d.routes.BeforeFilters()); err != nil {
		return nil, err
	}

	result, found, err := d.runRoutes(c, d.routes.RoutesFor(c.Request.Method))
	if err != nil {
		return nil, err
	}

	override, ok, err := d.runStatusRoute(c, c.Status())
	if err != nil {
		return nil, err
	}
	switch {
	case ok:
		render.Release(result)
		return override, nil
	case found:
		return result, nil
	}

	if allowed := d.routes.MatchingMethodsExcept(c.Request.Method, c.path); len(allowed) > 0 {
		return d.methodNotAllowed(c, allowed)
	}
	return d.notFound(c)
}

// runRoutes tries routes in order and stops at the first that does not pass.
func (d *Dispatcher) runRoutes(c *Context, routes []*Route) (any, bool, error) {
	for _, r := range routes {
		m, ok := c.match(r)
		if !ok {
			continue
		}
		c.matched = r
		o := c.invoke(m)
		switch o.kind {
		case outcomePass:
			continue
		case outcomeContinue:
			return o.value, true, nil
		default:
			return nil, false, o.error()
		}
	}
	return nil, false, nil
}

// runFilters runs every matching filter and discards the results.
func (d *Dispatcher) runFilters(c *Context, filters []*Route) error {
	for _, f := range filters {
		m, ok := c.match(f)
		if !ok {
			continue
		}
		o := c.invoke(m)
		switch o.kind {
		case outcomePass:
			return ErrPassInFilter
		case outcomeContinue:
			render.Release(o.value)
		default:
			return o.error()
		}
	}
	return nil
}

// runStatusRoute runs the status route for code if one is registered and
// matches the path. A passing status route counts as absent.
func (d *Dispatcher) runStatusRoute(c *Context, code int) (any, bool, error) {
	r, ok := d.routes.StatusRoute(code)
	if !ok {
		return nil, false, nil
	}
	m, ok := c.match(r)
	if !ok {
		return nil, false, nil
	}
	o := c.invoke(m)
	switch o.kind {
	case outcomeContinue:
		return o.value, true, nil
	case outcomePass:
		return nil, false, nil
	default:
		return nil, false, o.error()
	}
}

func (d *Dispatcher) notFound(c *Context) (any, error) {
	switch {
	case d.notFoundHandler != nil:
		return d.notFoundHandler(c)
	case d.fallback != nil:
		d.fallback.ServeHTTP(c.res, c.Request)
		return render.Unit, nil
	default:
		return render.NotFound(http.StatusText(http.StatusNotFound)), nil
	}
}

func (d *Dispatcher) pipeline(c *Context) *render.Pipeline {
	return &render.Pipeline{
		NotFound:  func() (any, error) { return d.notFound(c) },
		Renderers: d.renderers,
		MaxSteps:  d.maxSteps,
	}
}

// runCallbacks completes the raw-result stage: the after-filters run once,
// then the registered callbacks. It returns the after-filter error, if any.
func (d *Dispatcher) runCallbacks(c *Context, result any, err error) error {
	var afterErr error
	if c.afterArmed && !c.afterRan && !c.callbacks.fired {
		c.afterRan = true
		afterErr = d.runFilters(c, d.routes.AfterFilters())
	}
	c.callbacks.fire(c.logger, "result", result, err)
	return afterErr
}

// renderResponse renders result and completes both callback stages.
func (d *Dispatcher) renderResponse(c *Context, result any) {
	if aw, ok := result.(Awaitable); ok && (d.isAsyncExecutable == nil || d.isAsyncExecutable(result)) {
		d.handle(c, func() (any, error) { return aw.Await(c.StdContext()) })
		return
	}

	if c.res.ContentType() == "" {
		ct, replaced := render.InferContentType(result, d.renderers...)
		if ct != "" {
			c.res.SetContentType(ct)
		}
		result = replaced
	}

	if err := d.runCallbacks(c, result, nil); err != nil {
		render.Release(result)
		d.renderFailure(c, err)
		return
	}

	_, err := protect(func() (any, error) {
		return nil, d.pipeline(c).Render(c.res, result)
	})
	if err != nil {
		d.renderFailure(c, err)
		return
	}
	c.renderCallbacks.fire(c.logger, "render", result, nil)
}

// renderFailure handles an error raised while completing or rendering a
// result. A halt is rendered directly unless halts are already nested too deep.
func (d *Dispatcher) renderFailure(c *Context, err error) {
	var h *HaltError
	if errors.As(err, &h) && c.haltDepth < maxHaltDepth {
		c.halted = h
		d.renderHalt(c, h)
		return
	}
	d.renderUncaught(c, err)
}

// renderHalt renders the halt's own status, headers and body as a structured
// result. A 404 halt without a body renders the not-found result instead.
func (d *Dispatcher) renderHalt(c *Context, h *HaltError) {
	c.haltDepth++
	defer func() { c.haltDepth-- }()

	if h.Status == http.StatusNotFound && render.IsUnit(h.Body) {
		result, err := protect(func() (any, error) { return d.notFound(c) })
		if err != nil {
			d.renderFailure(c, err)
			return
		}
		d.renderResponse(c, result)
		return
	}

	d.renderResponse(c, render.Result{Status: h.Status, Body: h.Body, Headers: h.Headers})
}

// renderUncaught is the last stage for a failed request: a 500, plus the
// error and stack in development mode. Both callback stages fire with err
// even when writing the response fails.
func (d *Dispatcher) renderUncaught(c *Context, err error) {
	c.uncaught = err
	defer c.renderCallbacks.fire(c.logger, "render", nil, err)

	if afterErr := d.runCallbacks(c, nil, err); afterErr != nil {
		c.logger.Error("after filter failed", "error", afterErr)
	}
	c.logger.Error("uncaught error", "error", err)

	if c.res.Committed() {
		return
	}
	if _, werr := protect(func() (any, error) {
		c.res.SetStatus(http.StatusInternalServerError)
		if !d.devMode {
			return nil, nil
		}
		c.res.SetContentType("text/plain; charset=utf-8")
		_, werr := c.res.WriteString(devBody(err))
		return nil, werr
	}); werr != nil {
		c.logger.Error("writing error response failed", "error", werr)
	}
}

// devBody is the development-mode body for err.
func devBody(err error) string {
	code := "SW101"
	switch {
	case errors.Is(err, ErrPassInFilter):
		code = "SW104"
	case errors.Is(err, render.ErrRenderLoop):
		code = "SW103"
	}
	var p *PanicError
	if errors.As(err, &p) {
		code = "SW102"
	}

	body := swerrors.FromError(err, code).Plain()
	if p != nil {
		body = fmt.Sprintf("%s\n\n%s", body, p.Stack)
	}
	return body
}

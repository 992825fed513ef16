package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/vango-dev/switchyard/pkg/render"
	"github.com/vango-dev/switchyard/pkg/route"
)

type prehandleKey struct{}

// WithPrehandleError attaches err to r. The dispatcher raises it before any
// filter runs, so failures from earlier host stages (body parsing, uploads)
// go through the same error handling as action errors.
func WithPrehandleError(r *http.Request, err error) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), prehandleKey{}, err))
}

// PrehandleError returns the error attached with WithPrehandleError.
func PrehandleError(r *http.Request) error {
	err, _ := r.Context().Value(prehandleKey{}).(error)
	return err
}

// Context is the per-request dispatch state. It is not safe for concurrent
// use; actions that hand work to other goroutines must copy what they need.
type Context struct {
	// Request is the request being dispatched.
	Request *http.Request

	res     *render.Response
	path    string
	params  route.Params
	matched *Route
	id      string
	logger  *slog.Logger
	values  map[string]any

	callbacks       callbackList
	renderCallbacks callbackList

	prehandleErr error
	halted       *HaltError
	afterArmed   bool
	afterRan     bool
	haltDepth    int
	uncaught     error
}

func newContext(w http.ResponseWriter, r *http.Request, path string, logger *slog.Logger) *Context {
	id := r.Header.Get("X-Request-Id")
	if id == "" {
		id = uuid.NewString()
	}
	return &Context{
		Request:      r,
		res:          render.NewResponse(w, r),
		path:         path,
		params:       route.FromValues(r.URL.Query()),
		id:           id,
		logger:       logger.With("request_id", id, "method", r.Method, "path", path),
		prehandleErr: PrehandleError(r),
	}
}

// Response returns the response being built.
func (c *Context) Response() *render.Response {
	return c.res
}

// Path returns the path used for matching.
func (c *Context) Path() string {
	return c.path
}

// Param returns the first value of the named parameter.
func (c *Context) Param(name string) string {
	return c.params.Get(name)
}

// MultiParams returns every value of the named parameter.
func (c *Context) MultiParams(name string) []string {
	return c.params.Values(name)
}

// Params returns a copy of the accumulated parameters: the query string
// overlaid with the params of every route currently executing.
func (c *Context) Params() route.Params {
	return c.params.Clone()
}

// Bind fills the struct target points to from the accumulated parameters
// (see route.Bind). A value that does not convert yields a 400 halt, so
// actions can return the error as is.
func (c *Context) Bind(target any) error {
	err := route.Bind(c.params, target)
	var be *route.BindError
	if errors.As(err, &be) {
		return Halt(http.StatusBadRequest, be.Error())
	}
	return err
}

// Matched returns the route most recently matched for this request.
func (c *Context) Matched() *Route {
	return c.matched
}

// Status returns the current response status.
func (c *Context) Status() int {
	return c.res.Status()
}

// SetStatus sets the response status.
func (c *Context) SetStatus(code int) {
	c.res.SetStatus(code)
}

// Header returns the response headers.
func (c *Context) Header() http.Header {
	return c.res.Header()
}

// SetContentType sets the response content type. Results are not sniffed
// once a content type is set.
func (c *Context) SetContentType(ct string) {
	c.res.SetContentType(ct)
}

// Write writes to the response body directly. Actions that do so usually
// return render.Unit.
func (c *Context) Write(p []byte) (int, error) {
	return c.res.Write(p)
}

// StdContext returns the request's context.Context.
func (c *Context) StdContext() context.Context {
	return c.Request.Context()
}

// WithStdContext replaces the request's context.Context.
func (c *Context) WithStdContext(ctx context.Context) {
	c.Request = c.Request.WithContext(ctx)
}

// RequestID returns the X-Request-Id header or a generated UUID.
func (c *Context) RequestID() string {
	return c.id
}

// Logger returns a logger annotated with the request id, method and path.
func (c *Context) Logger() *slog.Logger {
	return c.logger
}

// Set stores a request-scoped value.
func (c *Context) Set(key string, v any) {
	if c.values == nil {
		c.values = make(map[string]any)
	}
	c.values[key] = v
}

// Get returns a value stored with Set.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// AddCallback registers fn to run once the raw result (or failure) of the
// request is known, before rendering. Callbacks added after that point never run.
func (c *Context) AddCallback(fn Callback) {
	c.callbacks.add(fn)
}

// AddRenderCallback registers fn to run once rendering finished or failed.
func (c *Context) AddRenderCallback(fn Callback) {
	c.renderCallbacks.add(fn)
}

// Halted returns the last halt handled for this request, or nil.
func (c *Context) Halted() *HaltError {
	return c.halted
}

// Err returns the error that was rendered as an uncaught failure, if any.
func (c *Context) Err() error {
	return c.uncaught
}

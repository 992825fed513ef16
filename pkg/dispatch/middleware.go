package dispatch

// Middleware wraps a dispatch. next runs the rest of the chain and returns
// the error that was rendered as an uncaught failure, if any. An error
// returned without calling next is handled like an action error.
type Middleware interface {
	Handle(c *Context, next func() error) error
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(c *Context, next func() error) error

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(c *Context, next func() error) error {
	return f(c, next)
}

// ComposeMiddleware runs mw in order around handler.
func ComposeMiddleware(c *Context, mw []Middleware, handler func() error) error {
	if len(mw) == 0 {
		return handler()
	}

	chain := handler
	for i := len(mw) - 1; i >= 0; i-- {
		m := mw[i]
		next := chain
		chain = func() error {
			return m.Handle(c, next)
		}
	}
	return chain()
}

// Chain combines middleware into one.
func Chain(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(c *Context, next func() error) error {
		return ComposeMiddleware(c, middleware, next)
	})
}

// Skip bypasses mw when condition holds.
func Skip(condition func(c *Context) bool, mw Middleware) Middleware {
	return MiddlewareFunc(func(c *Context, next func() error) error {
		if condition(c) {
			return next()
		}
		return mw.Handle(c, next)
	})
}

// Only runs mw when condition holds.
func Only(condition func(c *Context) bool, mw Middleware) Middleware {
	return MiddlewareFunc(func(c *Context, next func() error) error {
		if !condition(c) {
			return next()
		}
		return mw.Handle(c, next)
	})
}

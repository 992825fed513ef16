package dispatch

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/vango-dev/switchyard/pkg/route"
)

type outcomeKind int

const (
	outcomeContinue outcomeKind = iota
	outcomePass
	outcomeHalt
	outcomeFail
)

// outcome is the classified result of running one action.
type outcome struct {
	kind  outcomeKind
	value any
	halt  *HaltError
	err   error
}

// error returns the halt or failure carried by o.
func (o outcome) error() error {
	switch o.kind {
	case outcomeHalt:
		return o.halt
	case outcomeFail:
		return o.err
	}
	return nil
}

func classify(value any, err error) outcome {
	if err == nil {
		return outcome{kind: outcomeContinue, value: value}
	}
	if errors.Is(err, ErrPass) {
		return outcome{kind: outcomePass}
	}
	var h *HaltError
	if errors.As(err, &h) {
		return outcome{kind: outcomeHalt, halt: h}
	}
	return outcome{kind: outcomeFail, err: err}
}

// protect runs fn, turning a panic into an error. Panicking with a *HaltError
// or ErrPass is the same as returning it. http.ErrAbortHandler is re-raised.
func protect(fn func() (any, error)) (result any, err error) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		if v == http.ErrAbortHandler {
			panic(v)
		}
		if e, ok := v.(error); ok {
			var h *HaltError
			if errors.As(e, &h) {
				err = h
				return
			}
			if errors.Is(e, ErrPass) {
				err = ErrPass
				return
			}
		}
		err = &PanicError{Value: v, Stack: debug.Stack()}
	}()
	return fn()
}

// invoke runs the action of m with its params merged over the accumulated
// params. The previous params are restored when the action returns.
func (c *Context) invoke(m matchedRoute) outcome {
	saved := c.params
	c.params = saved.Merge(route.DecodeParams(m.params))
	defer func() { c.params = saved }()

	return classify(protect(func() (any, error) {
		return m.route.Action(c)
	}))
}

// match returns the route with its params when it accepts the context path.
func (c *Context) match(r *Route) (matchedRoute, bool) {
	params, ok := r.Match(c.path)
	if !ok {
		return matchedRoute{}, false
	}
	return matchedRoute{route: r, params: params}, true
}

package dispatch

import (
	"fmt"
	"strings"

	"github.com/vango-dev/switchyard/pkg/route"
)

// Action runs when a route matches. The returned value is rendered; a
// returned error is classified as pass, halt or failure.
type Action func(c *Context) (any, error)

// Route is an action guarded by matchers. Routes are compared by identity,
// so keep the *Route returned at registration to remove it later.
type Route struct {
	Matchers []route.Matcher
	Action   Action
}

// NewRoute builds a route. With no matchers it matches every path.
func NewRoute(action Action, matchers ...route.Matcher) *Route {
	return &Route{Matchers: matchers, Action: action}
}

// Match runs the route's matchers against path.
func (r *Route) Match(path string) (route.Params, bool) {
	return route.Match(r.Matchers, path)
}

// String describes the route by its matchers.
func (r *Route) String() string {
	if len(r.Matchers) == 0 {
		return "*"
	}
	parts := make([]string, 0, len(r.Matchers))
	for _, m := range r.Matchers {
		if s, ok := m.(fmt.Stringer); ok {
			parts = append(parts, s.String())
		} else {
			parts = append(parts, "<condition>")
		}
	}
	return strings.Join(parts, " ")
}

// matchedRoute is a route with the params extracted for the current path.
// Params are still percent-encoded; they are decoded once on merge.
type matchedRoute struct {
	route  *Route
	params route.Params
}

package dispatch

import (
	"net/http"
	"sync"
)

// Entry describes one registered route for listings.
type Entry struct {
	Method  string
	Pattern string
}

type statusRoute struct {
	lo, hi int
	route  *Route
}

// Registry holds filters, method routes and status routes. It is safe for
// concurrent use; lookups return copies so actions may register or remove
// routes while a request is in flight.
type Registry struct {
	mu      sync.RWMutex
	before  []*Route
	after   []*Route
	methods []string
	routes  map[string][]*Route
	status  []statusRoute
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{routes: make(map[string][]*Route)}
}

// AddRoute appends r to the routes for method.
func (reg *Registry) AddRoute(method string, r *Route) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.routes[method]; !ok {
		reg.methods = append(reg.methods, method)
	}
	reg.routes[method] = append(reg.routes[method], r)
}

// RemoveRoute removes r from the routes for method. It reports whether r was
// registered.
func (reg *Registry) RemoveRoute(method string, r *Route) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	routes, ok := remove(reg.routes[method], r)
	if ok {
		reg.routes[method] = routes
	}
	return ok
}

// RoutesFor returns the routes for method in registration order. HEAD uses
// the GET routes when none are registered for HEAD.
func (reg *Registry) RoutesFor(method string) []*Route {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	routes := reg.routes[method]
	if method == http.MethodHead && len(routes) == 0 {
		routes = reg.routes[http.MethodGet]
	}
	return clone(routes)
}

// MatchingMethodsExcept returns the methods, other than method, with a route
// matching path. A HEAD request also excludes GET. HEAD is reported whenever
// GET is.
func (reg *Registry) MatchingMethodsExcept(method, path string) []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	var out []string
	hasGet, hasHead := false, false
	for _, m := range reg.methods {
		if m == method || (method == http.MethodHead && m == http.MethodGet) {
			continue
		}
		for _, r := range reg.routes[m] {
			if _, ok := r.Match(path); ok {
				out = append(out, m)
				hasGet = hasGet || m == http.MethodGet
				hasHead = hasHead || m == http.MethodHead
				break
			}
		}
	}
	if hasGet && !hasHead {
		out = append(out, http.MethodHead)
	}
	return out
}

// AddBefore appends a before-filter.
func (reg *Registry) AddBefore(r *Route) {
	reg.mu.Lock()
	reg.before = append(reg.before, r)
	reg.mu.Unlock()
}

// AddAfter appends an after-filter.
func (reg *Registry) AddAfter(r *Route) {
	reg.mu.Lock()
	reg.after = append(reg.after, r)
	reg.mu.Unlock()
}

// RemoveBefore removes a before-filter.
func (reg *Registry) RemoveBefore(r *Route) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	var ok bool
	reg.before, ok = remove(reg.before, r)
	return ok
}

// RemoveAfter removes an after-filter.
func (reg *Registry) RemoveAfter(r *Route) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	var ok bool
	reg.after, ok = remove(reg.after, r)
	return ok
}

// BeforeFilters returns the before-filters in registration order.
func (reg *Registry) BeforeFilters() []*Route {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return clone(reg.before)
}

// AfterFilters returns the after-filters in registration order.
func (reg *Registry) AfterFilters() []*Route {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return clone(reg.after)
}

// AddStatusRoute registers r for status codes lo through hi inclusive.
func (reg *Registry) AddStatusRoute(lo, hi int, r *Route) {
	if lo > hi {
		lo, hi = hi, lo
	}
	reg.mu.Lock()
	reg.status = append(reg.status, statusRoute{lo: lo, hi: hi, route: r})
	reg.mu.Unlock()
}

// RemoveStatusRoute removes every range registered for r.
func (reg *Registry) RemoveStatusRoute(r *Route) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	kept := reg.status[:0:0]
	for _, s := range reg.status {
		if s.route != r {
			kept = append(kept, s)
		}
	}
	removed := len(kept) != len(reg.status)
	reg.status = kept
	return removed
}

// StatusRoute returns the first registered route whose range contains code.
func (reg *Registry) StatusRoute(code int) (*Route, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	for _, s := range reg.status {
		if code >= s.lo && code <= s.hi {
			return s.route, true
		}
	}
	return nil, false
}

// Methods returns the methods with registered routes in first-registration order.
func (reg *Registry) Methods() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return append([]string(nil), reg.methods...)
}

// Entries lists every method route.
func (reg *Registry) Entries() []Entry {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	var out []Entry
	for _, m := range reg.methods {
		for _, r := range reg.routes[m] {
			out = append(out, Entry{Method: m, Pattern: r.String()})
		}
	}
	return out
}

func clone(routes []*Route) []*Route {
	if len(routes) == 0 {
		return nil
	}
	return append([]*Route(nil), routes...)
}

// remove deletes the first occurrence of r without touching the backing array
// of slices already handed out.
func remove(routes []*Route, r *Route) ([]*Route, bool) {
	for i, x := range routes {
		if x == r {
			out := make([]*Route, 0, len(routes)-1)
			out = append(out, routes[:i]...)
			return append(out, routes[i+1:]...), true
		}
	}
	return routes, false
}

// Package dispatch routes HTTP requests to actions and renders their results.
//
// A Dispatcher owns a Registry of before-filters, method routes, after-filters
// and status routes. For every request it:
//
//  1. re-raises a pre-handle error attached by the host, if any
//  2. runs the before-filters whose matchers accept the path
//  3. tries the routes for the request method in registration order,
//     stopping at the first action that does not Pass
//  4. lets a status route for the current response status override the result
//  5. falls back to method-not-allowed (405 + Allow) and then to not-found
//  6. runs the after-filters once and renders the result through the
//     render pipeline
//
// Actions steer dispatch with returned errors:
//
//	d.Get("/users/:id", func(c *dispatch.Context) (any, error) {
//	    if c.Param("id") == "me" {
//	        return nil, dispatch.Pass() // try the next route
//	    }
//	    u, ok := users[c.Param("id")]
//	    if !ok {
//	        return nil, dispatch.Halt(http.StatusNotFound, render.Unit)
//	    }
//	    return u.Name, nil
//	})
//
// A Halt short-circuits the request with its own status, headers and body. Any
// other error goes to the error handler; a failure there is rendered as a 500
// (with the error and stack in development mode). Completion callbacks
// registered on the Context fire exactly once for the raw result and once for
// the rendered response, on every path.
package dispatch

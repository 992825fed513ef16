// Package route matches request paths against route patterns.
//
// A route is guarded by one or more Matchers. Every matcher must accept the
// path for the route to match; the parameters each matcher extracts are
// merged into a single multi-valued Params map.
//
// # Patterns
//
// Pattern compiles Sinatra-style path patterns:
//
//	/users/:id          → id
//	/files/*.*          → splat, splat (in order)
//	/assets/*path       → path (rest of the path, slashes included)
//
// # Decoding
//
// Values are extracted from the raw (escaped) request path and are NOT decoded
// at match time. DecodeParams decodes them exactly once when they are merged
// into a request's accumulated parameters, so a value such as "%2541" becomes
// "%41" and never "A".
package route

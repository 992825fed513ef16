// Package middleware provides observability middleware for dispatchers.
//
//   - Prometheus records request counts, durations, uncaught errors, in-flight
//     requests and body sizes, labelled by route pattern rather than path.
//   - OpenTelemetry starts a server span per request and exposes it to actions
//     through the request context.
//
//	d := dispatch.New(dispatch.WithMiddleware(
//	    middleware.OpenTelemetry(middleware.WithTracerName("shop")),
//	    middleware.Prometheus(middleware.WithNamespace("shop")),
//	))
//
// Both see the error that the dispatcher rendered as an uncaught failure, if
// any; halts and handled errors are ordinary responses.
package middleware

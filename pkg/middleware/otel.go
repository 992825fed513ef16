package middleware

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/switchyard/pkg/dispatch"
)

const defaultTracerName = "switchyard"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "switchyard").
	TracerName string

	// IncludeQuery adds the raw query string to spans. Query strings may
	// carry sensitive values, so it is off by default.
	IncludeQuery bool

	// Filter decides which requests are traced. Nil traces everything.
	Filter func(c *dispatch.Context) bool

	// AttributeExtractor adds custom attributes when the span starts.
	AttributeExtractor func(c *dispatch.Context) []attribute.KeyValue

	// TracerProvider overrides the global provider.
	TracerProvider trace.TracerProvider
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithIncludeQuery enables recording the query string.
func WithIncludeQuery(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeQuery = include
	}
}

// WithRequestFilter sets a filter function for requests.
func WithRequestFilter(filter func(c *dispatch.Context) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(c *dispatch.Context) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// OpenTelemetry creates middleware that traces every dispatch with a server
// span. The span context replaces the request context, so actions reach it
// through c.StdContext() and pass it on to database and HTTP clients.
//
// The span is named "METHOD path" when it starts and renamed to
// "METHOD pattern" once a route has matched. Responses with status 500 or
// above, and uncaught errors, mark the span as failed.
//
// The tracer uses the global provider unless WithTracerProvider is given:
//
//	otel.SetTracerProvider(tp)
//	d := dispatch.New(dispatch.WithMiddleware(middleware.OpenTelemetry()))
func OpenTelemetry(opts ...OTelOption) dispatch.Middleware {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}

	var tracer trace.Tracer
	if config.TracerProvider != nil {
		tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		tracer = otel.Tracer(config.TracerName)
	}

	return dispatch.MiddlewareFunc(func(c *dispatch.Context, next func() error) error {
		if config.Filter != nil && !config.Filter(c) {
			return next()
		}

		attrs := []attribute.KeyValue{
			attribute.String("http.request.method", c.Request.Method),
			attribute.String("url.path", c.Path()),
			attribute.String("switchyard.request_id", c.RequestID()),
		}
		if config.IncludeQuery && c.Request.URL.RawQuery != "" {
			attrs = append(attrs, attribute.String("url.query", c.Request.URL.RawQuery))
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(c)...)
		}

		spanCtx, span := tracer.Start(
			c.StdContext(),
			fmt.Sprintf("%s %s", c.Request.Method, c.Path()),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...),
		)
		defer span.End()
		c.WithStdContext(spanCtx)

		err := next()

		status := c.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if r := c.Matched(); r != nil {
			span.SetAttributes(attribute.String("http.route", r.String()))
			span.SetName(fmt.Sprintf("%s %s", c.Request.Method, r.String()))
		}

		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case status >= http.StatusInternalServerError:
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		return err
	})
}

// SpanFromContext returns the span started for the request, or a no-op span.
//
//	d.Get("/orders/:id", func(c *dispatch.Context) (any, error) {
//	    middleware.SpanFromContext(c).SetAttributes(attribute.String("order.id", c.Param("id")))
//	    ...
//	})
func SpanFromContext(c *dispatch.Context) trace.Span {
	return trace.SpanFromContext(c.StdContext())
}

// TraceContext returns the context carrying the request span, for
// propagation to outbound calls.
func TraceContext(c *dispatch.Context) context.Context {
	return c.StdContext()
}

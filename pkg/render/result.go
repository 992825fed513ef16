package render

import (
	"net/http"
	"strings"
)

type unit struct{}

// Unit is the terminal result: the action already wrote the response itself.
// A nil result is treated the same way.
var Unit any = unit{}

// IsUnit reports whether v ends the pipeline.
func IsUnit(v any) bool {
	if v == nil {
		return true
	}
	_, ok := v.(unit)
	return ok
}

// Result is a structured action result: a status, headers and a body that is
// itself rendered by the pipeline. A zero Status leaves the status unchanged.
type Result struct {
	Status  int
	Body    any
	Headers http.Header
}

// WithHeader returns a copy of r with the header added.
func (r Result) WithHeader(name, value string) Result {
	h := r.Headers.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Add(name, value)
	r.Headers = h
	return r
}

// applyHeaders copies the result headers onto w. Content-Type replaces any
// existing value; other headers are appended.
func (r Result) applyHeaders(w *Response) {
	for name, values := range r.Headers {
		if strings.EqualFold(name, "Content-Type") {
			if len(values) > 0 {
				w.SetContentType(values[len(values)-1])
			}
			continue
		}
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
}

// File is a result naming a file on disk to send as the body.
type File struct {
	Path string
}

func status(code int, body any) Result {
	return Result{Status: code, Body: body}
}

// Ok is a 200 result.
func Ok(body any) Result { return status(http.StatusOK, body) }

// Created is a 201 result.
func Created(body any) Result { return status(http.StatusCreated, body) }

// Accepted is a 202 result.
func Accepted(body any) Result { return status(http.StatusAccepted, body) }

// NoContent is a 204 result with no body.
func NoContent() Result { return status(http.StatusNoContent, Unit) }

// MovedPermanently is a 301 redirect to location.
func MovedPermanently(location string) Result {
	return status(http.StatusMovedPermanently, Unit).WithHeader("Location", location)
}

// Found is a 302 redirect to location.
func Found(location string) Result {
	return status(http.StatusFound, Unit).WithHeader("Location", location)
}

// BadRequest is a 400 result.
func BadRequest(body any) Result { return status(http.StatusBadRequest, body) }

// Unauthorized is a 401 result.
func Unauthorized(body any) Result { return status(http.StatusUnauthorized, body) }

// Forbidden is a 403 result.
func Forbidden(body any) Result { return status(http.StatusForbidden, body) }

// NotFound is a 404 result. With a Unit body it renders the not-found handler.
func NotFound(body any) Result { return status(http.StatusNotFound, body) }

// MethodNotAllowed is a 405 result.
func MethodNotAllowed(body any) Result { return status(http.StatusMethodNotAllowed, body) }

// Conflict is a 409 result.
func Conflict(body any) Result { return status(http.StatusConflict, body) }

// InternalServerError is a 500 result.
func InternalServerError(body any) Result { return status(http.StatusInternalServerError, body) }

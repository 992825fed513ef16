package dispatch

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrPass is returned by an action that declines the request so the next
	// matching route is tried.
	ErrPass = errors.New("dispatch: pass")

	// ErrPassInFilter is raised when a filter returns ErrPass. Filters cannot pass.
	ErrPassInFilter = errors.New("dispatch: pass called from a filter")
)

// Pass returns ErrPass.
func Pass() error {
	return ErrPass
}

// HaltError stops dispatch and renders its own status, headers and body.
// The body goes through the render pipeline like any action result.
type HaltError struct {
	// Status is the response status. Zero leaves the current status alone.
	Status int

	// Reason is an optional reason phrase. net/http always writes the standard
	// text, so it is only reported in logs and errors.
	Reason string

	// Headers are added to the response before the body renders.
	Headers http.Header

	// Body is rendered through the pipeline.
	Body any
}

// Error implements error.
func (e *HaltError) Error() string {
	switch {
	case e.Status == 0:
		return "dispatch: halt"
	case e.Reason != "":
		return fmt.Sprintf("dispatch: halt %d %s", e.Status, e.Reason)
	default:
		return fmt.Sprintf("dispatch: halt %d", e.Status)
	}
}

// WithReason sets the reason phrase.
func (e *HaltError) WithReason(reason string) *HaltError {
	e.Reason = reason
	return e
}

// WithHeader adds a response header.
func (e *HaltError) WithHeader(name, value string) *HaltError {
	if e.Headers == nil {
		e.Headers = http.Header{}
	}
	e.Headers.Add(name, value)
	return e
}

// Halt builds a HaltError. headers are name/value pairs; a trailing name
// without a value is ignored.
func Halt(status int, body any, headers ...string) *HaltError {
	e := &HaltError{Status: status, Body: body}
	for i := 0; i+1 < len(headers); i += 2 {
		e.WithHeader(headers[i], headers[i+1])
	}
	return e
}

// HaltStatus halts with status and no body.
func HaltStatus(status int) *HaltError {
	return &HaltError{Status: status}
}

// Redirect halts with 302 Found and a Location header.
func Redirect(location string) *HaltError {
	return HaltStatus(http.StatusFound).WithHeader("Location", location)
}

// PanicError is a recovered panic from an action, filter, handler or renderer.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements error.
func (e *PanicError) Error() string {
	return fmt.Sprintf("dispatch: panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

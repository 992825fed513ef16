package dispatch

import (
	"context"
	"sync"
)

// Awaitable is a result that is not ready yet. The dispatcher waits for it
// before rendering, and the resolved value or error goes through the same
// halt and error handling as an action result.
type Awaitable interface {
	Await(ctx context.Context) (any, error)
}

// Future is an Awaitable resolved exactly once.
type Future struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

// NewFuture returns an unresolved Future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Async runs fn on a new goroutine and returns a Future for its result.
// A panic in fn resolves the Future with a *PanicError.
func Async(ctx context.Context, fn func(ctx context.Context) (any, error)) *Future {
	f := NewFuture()
	go func() {
		f.Resolve(protect(func() (any, error) { return fn(ctx) }))
	}()
	return f
}

// Resolve completes the Future. Only the first call has an effect.
func (f *Future) Resolve(value any, err error) {
	f.once.Do(func() {
		f.value, f.err = value, err
		close(f.done)
	})
}

// Done is closed once the Future is resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the Future resolves or ctx is done.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

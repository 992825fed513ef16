package dispatch

import (
	"log/slog"
	"runtime/debug"
)

// Callback observes a completed stage. err is nil on success.
type Callback func(result any, err error)

// callbackList fires its callbacks once, in registration order.
type callbackList struct {
	fns   []Callback
	fired bool
}

func (l *callbackList) add(fn Callback) {
	if fn != nil {
		l.fns = append(l.fns, fn)
	}
}

// fire runs every callback unless the list already fired. A panicking
// callback is logged and the rest still run.
func (l *callbackList) fire(logger *slog.Logger, stage string, result any, err error) {
	if l.fired {
		return
	}
	l.fired = true
	for _, fn := range l.fns {
		runCallback(logger, stage, fn, result, err)
	}
}

func runCallback(logger *slog.Logger, stage string, fn Callback, result any, err error) {
	defer func() {
		if v := recover(); v != nil {
			logger.Error("completion callback panicked",
				"stage", stage,
				"panic", v,
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn(result, err)
}

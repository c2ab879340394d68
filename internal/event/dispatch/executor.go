package dispatch

import (
	"context"
	"runtime/debug"
	"time"
)

// Func is a callback run by the executor.
type Func func(ctx context.Context) error

// PanicHandler is notified of every recovered panic.
type PanicHandler func(value any, stack []byte)

// Result is the outcome of one callback execution.
type Result struct {
	// Err is the error returned by the callback.
	Err error

	// Panicked is true if the callback panicked.
	Panicked bool

	// PanicValue is the value passed to panic.
	PanicValue any

	// PanicStack is the stack captured at recovery.
	PanicStack []byte

	// Skipped is true if the context was already done.
	Skipped bool

	// Duration is how long the callback ran.
	Duration time.Duration
}

// OK reports whether the callback ran and succeeded.
func (r Result) OK() bool {
	return !r.Skipped && !r.Panicked && r.Err == nil
}

// Failure returns the callback's error, a *PanicError, or nil.
func (r Result) Failure() error {
	if r.Panicked {
		return &PanicError{Value: r.PanicValue, Stack: r.PanicStack}
	}
	return r.Err
}

// Executor runs callbacks with panic recovery and timing.
type Executor struct {
	panicHandler PanicHandler
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithPanicHandler sets the panic handler for the executor.
func WithPanicHandler(h PanicHandler) ExecutorOption {
	return func(e *Executor) {
		e.panicHandler = h
	}
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs fn and returns the result. Panics are recovered.
func (e *Executor) Execute(ctx context.Context, fn Func) (result Result) {
	if err := ctx.Err(); err != nil {
		return Result{Err: err, Skipped: true}
	}

	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)

		if r := recover(); r != nil {
			stack := debug.Stack()
			result.Panicked = true
			result.PanicValue = r
			result.PanicStack = stack

			if e.panicHandler != nil {
				func() {
					// a panicking panic handler must not escape either
					defer func() { _ = recover() }()
					e.panicHandler(r, stack)
				}()
			}
		}
	}()

	result.Err = fn(ctx)
	return result
}

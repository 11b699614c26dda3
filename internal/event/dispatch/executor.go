package dispatch

import (
	"runtime/debug"
	"time"
)

// Executor handles the actual execution of tasks with panic recovery,
// timing and fault reporting.
type Executor struct {
	faultHandler FaultHandler
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		faultHandler: LogFault,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorFaultHandler sets the fault handler for the executor.
// A nil handler discards faults.
func WithExecutorFaultHandler(h FaultHandler) ExecutorOption {
	return func(e *Executor) {
		e.faultHandler = h
	}
}

// Execute runs a task and returns the result.
// It recovers from panics and captures timing information.
func (e *Executor) Execute(task Task) (result Result) {
	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)

		if r := recover(); r != nil {
			result.Success = false
			result.Panicked = true
			result.Error = &PanicError{Value: r, Stack: debug.Stack()}
		}

		if result.Error != nil {
			e.report(result.Error)
		}
	}()

	if err := task(); err != nil {
		result.Error = err
		return result
	}

	result.Success = true
	return result
}

// report hands a fault to the fault handler. A panicking fault handler
// must not take the worker down with it.
func (e *Executor) report(err error) {
	if e.faultHandler == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	e.faultHandler(err)
}

package dispatch

import (
	"errors"
	"time"

	"github.com/dshills/emitter/internal/logging"
)

// Task is a unit of deferred work. A non-nil error is reported as a fault.
type Task func() error

// Scheduler runs tasks asynchronously, after the submitting call returns.
// Tasks submitted from the same goroutine must run in submission order.
type Scheduler interface {
	// Schedule queues a task. It never runs the task inline.
	Schedule(task Task) error
}

// SchedulerFunc is a function adapter for Scheduler.
type SchedulerFunc func(task Task) error

// Schedule implements the Scheduler interface.
func (f SchedulerFunc) Schedule(task Task) error {
	return f(task)
}

// Result represents the outcome of a task execution.
type Result struct {
	// Success is true if the task completed without error or panic.
	Success bool

	// Error is the error returned by the task, or a *PanicError.
	Error error

	// Panicked is true if the task panicked.
	Panicked bool

	// Duration is how long the task took to execute.
	Duration time.Duration
}

// IsSuccess returns true if the result indicates successful execution.
func (r Result) IsSuccess() bool {
	return r.Success && !r.Panicked && r.Error == nil
}

// IsError returns true if the result indicates an error (not panic).
func (r Result) IsError() bool {
	return r.Error != nil && !r.Panicked
}

// IsPanic returns true if the result indicates a panic.
func (r Result) IsPanic() bool {
	return r.Panicked
}

// FaultHandler receives errors and recovered panics from scheduled tasks.
// Faults are detached from whoever scheduled the task.
type FaultHandler func(err error)

// LogFault is the default FaultHandler. It writes the fault to the global
// zerolog logger.
func LogFault(err error) {
	logger := logging.Component("dispatch")
	evt := logger.Error().Err(err)
	var pe *PanicError
	if errors.As(err, &pe) {
		evt = evt.Str("stack", string(pe.Stack))
	}
	evt.Msg("scheduled task failed")
}

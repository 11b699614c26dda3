package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel errors for the dispatch package.
var (
	// ErrAlreadyRunning is returned when Start is called on a running queue.
	ErrAlreadyRunning = errors.New("scheduler is already running")

	// ErrNotRunning is returned when tasks are scheduled on a stopped queue.
	ErrNotRunning = errors.New("scheduler is not running")

	// ErrDraining is returned by Start while a previous worker is still
	// running the tasks queued before Stop.
	ErrDraining = errors.New("scheduler is still draining")

	// ErrNilTask is returned when a nil task is scheduled.
	ErrNilTask = errors.New("task cannot be nil")

	// ErrTaskPanic is matched by every *PanicError.
	ErrTaskPanic = errors.New("task panicked")
)

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Is allows errors.Is to match PanicError with ErrTaskPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrTaskPanic
}

// Unwrap returns the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

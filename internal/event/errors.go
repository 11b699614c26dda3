package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for the registry.
var (
	// ErrInvalidArgument is matched by every *ArgumentError.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnhandledError is matched by every *UnhandledError.
	ErrUnhandledError = errors.New(`unhandled "error" event`)
)

// ArgumentError reports a rejected argument. The registry is unchanged.
type ArgumentError struct {
	// Op is the registry method that rejected the argument.
	Op string

	// Arg names the argument.
	Arg string

	// Reason describes what is wrong with it.
	Reason string
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s %s", e.Op, e.Arg, e.Reason)
}

// Is allows errors.Is to match ArgumentError with ErrInvalidArgument.
func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// UnhandledError is returned by Emit for an "error" event nobody listens to.
type UnhandledError struct {
	// Value is the first argument given to Emit, if any.
	Value any
}

// Error implements the error interface.
func (e *UnhandledError) Error() string {
	if err, ok := e.Value.(error); ok {
		return ErrUnhandledError.Error() + ": " + err.Error()
	}
	return ErrUnhandledError.Error()
}

// Is allows errors.Is to match UnhandledError with ErrUnhandledError.
func (e *UnhandledError) Is(target error) bool {
	return target == ErrUnhandledError
}

// Unwrap returns the emitted error, when the first argument was one.
func (e *UnhandledError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func nilHandlerError(op string) error {
	return &ArgumentError{Op: op, Arg: "handler", Reason: "must not be nil"}
}

package event

import (
	"context"
	"reflect"
)

// Type identifies a kind of event, e.g. "data" or "close".
type Type string

// ErrorType is the reserved event type for error reporting. Emitting it with
// no registered handlers fails with an *UnhandledError.
const ErrorType Type = "error"

// DefaultMaxListeners is the per-type handler count above which a registry
// logs a possible leak.
const DefaultMaxListeners = 10

// Handler is the interface for event handlers.
// The argument shape is owned by whoever emits the event.
type Handler interface {
	// Handle processes one emitted event. The registry that dispatched
	// the call is available through FromContext(ctx).
	Handle(ctx context.Context, args ...any) error
}

// HandlerFunc is a function adapter for Handler.
//
// Function values are not comparable, so a HandlerFunc registered directly
// can only be removed with OffAll. Wrap it with Func to get a removable
// handler.
type HandlerFunc func(ctx context.Context, args ...any) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, args ...any) error {
	return f(ctx, args...)
}

// FuncHandler gives a function a pointer identity so it can be passed to Off.
type FuncHandler struct {
	fn HandlerFunc
}

// Func wraps fn in a FuncHandler.
func Func(fn HandlerFunc) *FuncHandler {
	return &FuncHandler{fn: fn}
}

// Handle implements the Handler interface.
func (h *FuncHandler) Handle(ctx context.Context, args ...any) error {
	return h.fn(ctx, args...)
}

// hasIdentity reports whether h can be compared with ==.
func hasIdentity(h Handler) bool {
	return reflect.TypeOf(h).Comparable()
}

// sameHandler compares two handlers by identity. Values that cannot be
// compared never match.
func sameHandler(a, b Handler) (same bool) {
	if reflect.TypeOf(a) != reflect.TypeOf(b) || !hasIdentity(a) {
		return false
	}
	// Comparable structs can still hold func values in interface fields.
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

// matches reports whether the stored entry is h, or a once adapter wrapping h.
func matches(entry, h Handler) bool {
	if sameHandler(entry, h) {
		return true
	}
	if once, ok := entry.(*OnceHandler); ok {
		return sameHandler(once.handler, h)
	}
	return false
}

// isNil reports whether h is nil or a typed nil pointer/func.
func isNil(h Handler) bool {
	if h == nil {
		return true
	}
	v := reflect.ValueOf(h)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Stats contains registry statistics.
type Stats struct {
	// Types is the number of event types with at least one handler.
	Types int

	// Listeners is the total number of registered handlers.
	Listeners int

	// Emitted is the number of Emit calls that found handlers.
	Emitted uint64

	// Scheduled is the number of handler invocations handed to the scheduler.
	Scheduled uint64

	// Unhandled is the number of Emit calls that found no handlers,
	// including unhandled error events.
	Unhandled uint64

	// LeakWarned is true once the leak warning has been logged.
	LeakWarned bool
}

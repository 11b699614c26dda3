package event

import (
	"context"
	"sync/atomic"
)

// OnceHandler is the adapter stored by Registry.Once. On its first
// invocation it removes itself from the registry and then calls the
// wrapped handler; later invocations do nothing.
type OnceHandler struct {
	registry *Registry
	typ      Type
	handler  Handler
	fired    atomic.Bool
}

// Handle implements the Handler interface.
func (o *OnceHandler) Handle(ctx context.Context, args ...any) error {
	if !o.fired.CompareAndSwap(false, true) {
		return nil
	}

	o.registry.mu.Lock()
	o.registry.remove(o.typ, o)
	o.registry.mu.Unlock()

	return o.handler.Handle(ctx, args...)
}

// Type returns the event type the adapter is registered for.
func (o *OnceHandler) Type() Type {
	return o.typ
}

// Handler returns the wrapped handler.
func (o *OnceHandler) Handler() Handler {
	return o.handler
}

// Fired reports whether the wrapped handler has been invoked.
func (o *OnceHandler) Fired() bool {
	return o.fired.Load()
}

// Cancel removes the adapter from its registry without invoking it.
func (o *OnceHandler) Cancel() {
	_ = o.registry.Off(o.typ, o)
}

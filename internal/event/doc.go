// Package event provides the handler registry behind the emitter.
//
// A Registry maps event types to ordered lists of handlers. Emitting an
// event never runs a handler inline: each handler becomes an independent
// task on a dispatch.Scheduler, so the caller of Emit only learns whether
// anybody was listening.
//
// # Registering Handlers
//
//	r := event.NewRegistry()
//
//	// Persistent handler. Func gives the function an identity so it can
//	// be removed later.
//	onData := event.Func(func(ctx context.Context, args ...any) error {
//	    fmt.Println("data:", args...)
//	    return nil
//	})
//	if err := r.On("data", onData); err != nil {
//	    return err
//	}
//
//	// One-shot handler. The returned adapter can cancel it.
//	once, err := r.Once("close", closeHandler)
//
//	r.Off("data", onData)
//	once.Cancel()
//
// # Emitting
//
//	found, err := r.Emit(ctx, "data", 42)
//
// Emit snapshots the handler list and the arguments before scheduling, so
// handlers added or removed afterwards do not change that emission.
// Emitting ErrorType without handlers returns an *UnhandledError.
//
// # Leak Warnings
//
// The first time any type gets more than MaxListeners handlers (default
// 10) the registry logs one warning through its zerolog logger. The
// warning is logged at most once per registry. SetMaxListeners(0)
// disables it.
//
// # Handler Faults
//
// Errors returned by handlers and panics inside them are reported to the
// scheduler's dispatch.FaultHandler. They never reach the Emit caller and
// never stop the other handlers of the same emission.
//
// # Thread Safety
//
// Registry is safe for concurrent use. Handlers must manage their own
// thread safety when the scheduler runs them on another goroutine.
package event

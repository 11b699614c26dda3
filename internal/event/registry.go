package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dshills/emitter/internal/event/dispatch"
)

// Registry maps event types to ordered handler lists and fans emitted
// events out to them through a Scheduler.
// It is safe for concurrent use.
type Registry struct {
	id        string
	scheduler dispatch.Scheduler
	logger    zerolog.Logger

	mu           sync.RWMutex
	handlers     map[Type][]Handler
	maxListeners int
	leakWarnings bool
	leakWarned   bool

	emitted   atomic.Uint64
	scheduled atomic.Uint64
	unhandled atomic.Uint64
}

// NewRegistry creates an empty registry with the given options.
func NewRegistry(opts ...Option) *Registry {
	config := defaultRegistryConfig()
	for _, opt := range opts {
		opt(&config)
	}

	id := uuid.NewString()
	return &Registry{
		id:           id,
		scheduler:    config.resolveScheduler(),
		logger:       config.resolveLogger(id),
		handlers:     make(map[Type][]Handler),
		maxListeners: config.maxListeners,
		leakWarnings: config.leakWarnings,
	}
}

// ID returns the registry's unique identifier.
func (r *Registry) ID() string {
	return r.id
}

// On appends h to the handlers of t.
func (r *Registry) On(t Type, h Handler) error {
	if isNil(h) {
		return nilHandlerError("On")
	}
	r.add(t, h, true)
	return nil
}

// Once registers h to run at most once for t. The returned adapter is
// what the registry stores; pass it (or h) to Off to cancel. Once skips
// the leak check, but pending once handlers still count when On checks.
func (r *Registry) Once(t Type, h Handler) (*OnceHandler, error) {
	if isNil(h) {
		return nil, nilHandlerError("Once")
	}
	once := &OnceHandler{registry: r, typ: t, handler: h}
	r.add(t, once, false)
	return once, nil
}

// add appends h to t. The caller of add's caller is reported as the
// registration site when the leak warning fires.
func (r *Registry) add(t Type, h Handler, checkLeak bool) {
	r.mu.Lock()
	handlers := append(r.handlers[t], h)
	r.handlers[t] = handlers
	warn := checkLeak && r.leakWarnings && r.maxListeners > 0 &&
		len(handlers) > r.maxListeners && !r.leakWarned
	if warn {
		r.leakWarned = true
	}
	threshold := r.maxListeners
	r.mu.Unlock()

	if warn {
		r.logger.Warn().
			Str("event_type", string(t)).
			Int("count", len(handlers)).
			Int("max_listeners", threshold).
			Caller(2).
			Msg("possible event emitter memory leak detected; use SetMaxListeners to raise the threshold")
	}
}

// Emit schedules every handler registered for t with args and reports
// whether there were any. Handlers run later, each in its own task, with
// the order and arguments captured here; their errors and panics go to
// the scheduler's fault handler, never to the caller.
//
// Emitting ErrorType with no handlers returns an *UnhandledError that
// wraps args[0] when it is an error.
func (r *Registry) Emit(ctx context.Context, t Type, args ...any) (bool, error) {
	r.mu.RLock()
	handlers := r.handlers[t]
	snapshot := make([]Handler, len(handlers))
	copy(snapshot, handlers)
	r.mu.RUnlock()

	if len(snapshot) == 0 {
		r.unhandled.Add(1)
		if t == ErrorType {
			var value any
			if len(args) > 0 {
				value = args[0]
			}
			return false, &UnhandledError{Value: value}
		}
		return false, nil
	}

	r.emitted.Add(1)

	argv := make([]any, len(args))
	copy(argv, args)
	hctx := NewContext(context.WithoutCancel(ctx), r)

	for _, h := range snapshot {
		h := h
		err := r.scheduler.Schedule(func() error {
			return h.Handle(hctx, argv...)
		})
		if err != nil {
			return true, err
		}
		r.scheduled.Add(1)
	}

	return true, nil
}

// Listeners returns a copy of the handlers registered for t, in order.
// Once registrations appear as their *OnceHandler.
func (r *Registry) Listeners(t Type) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handlers := r.handlers[t]
	result := make([]Handler, len(handlers))
	copy(result, handlers)
	return result
}

// ListenerCount returns the number of handlers registered for t.
func (r *Registry) ListenerCount(t Type) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.handlers[t])
}

// Types returns the event types that have handlers, in no particular order.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]Type, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}

// SetMaxListeners sets the leak warning threshold. Types already above
// the new value are not re-checked.
func (r *Registry) SetMaxListeners(n int) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.maxListeners = n
	return r
}

// MaxListeners returns the leak warning threshold.
func (r *Registry) MaxListeners() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.maxListeners
}

// SetLeakWarnings enables or disables the leak warning.
func (r *Registry) SetLeakWarnings(enabled bool) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leakWarnings = enabled
	return r
}

// Off removes the first handler for t that is h, or a once registration
// of h. Missing types and handlers are ignored. Handlers without an
// identity, such as a bare HandlerFunc, are rejected.
func (r *Registry) Off(t Type, h Handler) error {
	if isNil(h) {
		return nilHandlerError("Off")
	}
	if !hasIdentity(h) {
		return &ArgumentError{
			Op:     "Off",
			Arg:    "handler",
			Reason: "is not comparable; register it through Func to remove it later",
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.remove(t, h)
	return nil
}

// remove deletes the first match of h for t. Caller holds r.mu.
func (r *Registry) remove(t Type, h Handler) bool {
	handlers, ok := r.handlers[t]
	if !ok {
		return false
	}

	for i, entry := range handlers {
		if !matches(entry, h) {
			continue
		}
		if len(handlers) == 1 {
			delete(r.handlers, t)
			return true
		}
		next := make([]Handler, 0, len(handlers)-1)
		next = append(next, handlers[:i]...)
		next = append(next, handlers[i+1:]...)
		r.handlers[t] = next
		return true
	}
	return false
}

// OffAll removes every handler of the given types, or of all types when
// called without arguments.
func (r *Registry) OffAll(types ...Type) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(types) == 0 {
		r.handlers = make(map[Type][]Handler)
		return r
	}
	for _, t := range types {
		delete(r.handlers, t)
	}
	return r
}

// Stats returns current registry statistics.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	listeners := 0
	for _, handlers := range r.handlers {
		listeners += len(handlers)
	}
	stats := Stats{
		Types:      len(r.handlers),
		Listeners:  listeners,
		LeakWarned: r.leakWarned,
	}
	r.mu.RUnlock()

	stats.Emitted = r.emitted.Load()
	stats.Scheduled = r.scheduled.Load()
	stats.Unhandled = r.unhandled.Load()
	return stats
}

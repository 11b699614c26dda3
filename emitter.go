// Package emitter is a small publish-subscribe primitive: a registry of
// ordered handlers per event type with deferred dispatch, a one-shot leak
// warning and fatal-by-default "error" events.
//
//	e := emitter.New()
//	e.On("data", emitter.Func(func(ctx context.Context, args ...any) error {
//	    fmt.Println(args...)
//	    return nil
//	}))
//	e.Emit(ctx, "data", 42)
//
// See package internal/event for the full semantics.
package emitter

import (
	"io"
	"os"

	"github.com/dshills/emitter/internal/config"
	"github.com/dshills/emitter/internal/event"
	"github.com/dshills/emitter/internal/event/dispatch"
	"github.com/dshills/emitter/internal/logging"
)

type (
	// Emitter is the handler registry.
	Emitter = event.Registry

	// Type identifies a kind of event.
	Type = event.Type

	// Handler processes emitted events.
	Handler = event.Handler

	// HandlerFunc is a function adapter for Handler.
	HandlerFunc = event.HandlerFunc

	// FuncHandler is a removable function handler.
	FuncHandler = event.FuncHandler

	// OnceHandler is the adapter returned by Once.
	OnceHandler = event.OnceHandler

	// Option configures an Emitter.
	Option = event.Option

	// Stats contains emitter statistics.
	Stats = event.Stats

	// Scheduler runs emitted handlers.
	Scheduler = dispatch.Scheduler

	// Task is a unit of scheduled work.
	Task = dispatch.Task

	// Queue is a background FIFO scheduler.
	Queue = dispatch.Queue

	// Deferred is a scheduler drained explicitly by its owner.
	Deferred = dispatch.Deferred

	// Config holds emitter defaults loaded from files and the environment.
	Config = config.Config
)

// ErrorType is the reserved "error" event type.
const ErrorType = event.ErrorType

// DefaultMaxListeners is the default leak warning threshold.
const DefaultMaxListeners = event.DefaultMaxListeners

var (
	// ErrInvalidArgument is returned for nil or non-comparable handlers.
	ErrInvalidArgument = event.ErrInvalidArgument

	// ErrUnhandledError is returned by Emit for an unhandled "error" event.
	ErrUnhandledError = event.ErrUnhandledError
)

// Option constructors.
var (
	WithMaxListeners = event.WithMaxListeners
	WithLeakWarnings = event.WithLeakWarnings
	WithScheduler    = event.WithScheduler
	WithLogger       = event.WithLogger
)

// New creates an Emitter.
func New(opts ...Option) *Emitter {
	return event.NewRegistry(opts...)
}

// SetupLogging replaces the global zerolog logger used by emitters that
// were not given WithLogger, and by the default fault handler.
func SetupLogging(level string, w io.Writer) error {
	return logging.Setup(level, w)
}

// NewQueue creates a stopped background scheduler. Call Start before use.
func NewQueue() *Queue {
	return dispatch.NewQueue()
}

// NewDeferred creates a scheduler whose tasks run on Flush.
func NewDeferred() *Deferred {
	return dispatch.NewDeferred()
}

// Func wraps fn so that it can later be passed to Off.
func Func(fn HandlerFunc) *FuncHandler {
	return event.Func(fn)
}

// NewFromFile creates an Emitter from a TOML or YAML config file with
// EMITTER_* environment overrides. Explicit opts are applied last.
func NewFromFile(path string, opts ...Option) (*Emitter, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.FromEnv(&cfg); err != nil {
		return nil, err
	}
	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		return nil, err
	}
	base := append(cfg.Options(), WithLogger(logger))
	return New(append(base, opts...)...), nil
}

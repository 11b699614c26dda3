package event

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dshills/emitter/internal/event/dispatch"
)

// Option configures a Registry.
type Option func(*registryConfig)

// registryConfig contains configuration for a registry.
type registryConfig struct {
	// maxListeners is the per-type leak warning threshold.
	maxListeners int

	// leakWarnings enables the leak warning.
	leakWarnings bool

	// scheduler runs emitted handlers. Nil means dispatch.Default().
	scheduler dispatch.Scheduler

	// logger receives the leak warning.
	logger *zerolog.Logger
}

// defaultRegistryConfig returns the configuration of a plain NewRegistry().
func defaultRegistryConfig() registryConfig {
	return registryConfig{
		maxListeners: DefaultMaxListeners,
		leakWarnings: true,
	}
}

// WithMaxListeners sets the initial leak warning threshold.
// Zero or a negative value disables the warning.
func WithMaxListeners(n int) Option {
	return func(c *registryConfig) {
		c.maxListeners = n
	}
}

// WithLeakWarnings enables or disables the leak warning.
func WithLeakWarnings(enabled bool) Option {
	return func(c *registryConfig) {
		c.leakWarnings = enabled
	}
}

// WithScheduler sets the scheduler that runs emitted handlers.
func WithScheduler(s dispatch.Scheduler) Option {
	return func(c *registryConfig) {
		if s != nil {
			c.scheduler = s
		}
	}
}

// WithLogger sets the logger used for leak warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(c *registryConfig) {
		c.logger = &l
	}
}

func (c registryConfig) resolveLogger(id string) zerolog.Logger {
	base := log.Logger
	if c.logger != nil {
		base = *c.logger
	}
	return base.With().
		Str("component", "emitter").
		Str("emitter_id", id).
		Logger()
}

func (c registryConfig) resolveScheduler() dispatch.Scheduler {
	if c.scheduler != nil {
		return c.scheduler
	}
	return dispatch.Default()
}

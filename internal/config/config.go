package config

import (
	"errors"
	"io"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/dshills/emitter/internal/event"
	"github.com/dshills/emitter/internal/logging"
)

// EnvPrefix is the prefix for environment overrides, e.g. EMITTER_MAX_LISTENERS.
const EnvPrefix = "EMITTER"

// ErrInvalidConfig is matched by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the registry defaults that used to be process-wide.
type Config struct {
	// MaxListeners is the per-type leak warning threshold. 0 disables it.
	MaxListeners int `toml:"max_listeners" yaml:"max_listeners" envconfig:"MAX_LISTENERS"`

	// LeakWarnings turns the leak warning on or off.
	LeakWarnings bool `toml:"leak_warnings" yaml:"leak_warnings" envconfig:"LEAK_WARNINGS"`

	// LogLevel is a zerolog level name.
	LogLevel string `toml:"log_level" yaml:"log_level" envconfig:"LOG_LEVEL"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MaxListeners: event.DefaultMaxListeners,
		LeakWarnings: true,
		LogLevel:     logging.DefaultLevel,
	}
}

// Validate reports every problem with c.
func (c Config) Validate() error {
	var err error
	if c.MaxListeners < 0 {
		err = multierr.Append(err, &FieldError{
			Field:  "max_listeners",
			Reason: "must be >= 0 (use 0 to disable the leak warning)",
		})
	}
	if _, lerr := logging.ParseLevel(c.LogLevel); lerr != nil {
		err = multierr.Append(err, &FieldError{
			Field:  "log_level",
			Reason: lerr.Error(),
		})
	}
	return err
}

// Options converts c into registry options.
func (c Config) Options() []event.Option {
	return []event.Option{
		event.WithMaxListeners(c.MaxListeners),
		event.WithLeakWarnings(c.LeakWarnings),
	}
}

// Apply updates a live registry with c.
func (c Config) Apply(r *event.Registry) {
	r.SetMaxListeners(c.MaxListeners).SetLeakWarnings(c.LeakWarnings)
}

// Logger builds a logger at c.LogLevel writing to w.
func (c Config) Logger(w io.Writer) (zerolog.Logger, error) {
	return logging.New(c.LogLevel, w)
}

// FieldError describes one invalid setting.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return "config field " + e.Field + " " + e.Reason
}

// Is allows errors.Is to match FieldError with ErrInvalidConfig.
func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidConfig
}

package app

import (
	"time"

	"github.com/bft-labs/clusterbus/internal/ports"
)

// Default engine settings.
const (
	DefaultCycleTime    = 100 * time.Millisecond
	DefaultGraceTimeout = 2 * time.Second
)

// Option configures optional behavior of an Engine.
type Option func(*options)

type options struct {
	logger       ports.Logger
	handler      ports.EventHandler
	cycleTime    time.Duration
	graceTimeout time.Duration
}

func defaultOptions() options {
	return options{
		logger:       noopLogger{},
		cycleTime:    DefaultCycleTime,
		graceTimeout: DefaultGraceTimeout,
	}
}

// WithLogger sets a structured logger. If not provided, nothing is logged.
func WithLogger(logger ports.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler sets a handler for worker state changes and failures.
func WithEventHandler(handler ports.EventHandler) Option {
	return func(o *options) {
		o.handler = handler
	}
}

// WithCycleTime sets the initial transmission interval shared by all frames.
func WithCycleTime(d time.Duration) Option {
	return func(o *options) {
		o.cycleTime = d
	}
}

// WithGraceTimeout bounds how long a stop waits for a worker to reach Idle.
func WithGraceTimeout(d time.Duration) Option {
	return func(o *options) {
		o.graceTimeout = d
	}
}

// noopLogger discards all log messages.
type noopLogger struct{}

func (noopLogger) Debug(msg string, fields ...ports.Field) {}
func (noopLogger) Info(msg string, fields ...ports.Field)  {}
func (noopLogger) Warn(msg string, fields ...ports.Field)  {}
func (noopLogger) Error(msg string, fields ...ports.Field) {}

// Package circuitbreaker provides circuit breaker functionality for the gateway.
// It implements the circuit breaker pattern to prevent cascading failures.
package circuitbreaker

import (
	"time"

	"github.com/vyrodovalexey/gymgw/internal/config"
	"github.com/vyrodovalexey/gymgw/internal/observability"
)

// Config holds configuration for a circuit breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures before opening the circuit.
	FailureThreshold int

	// OpenDuration is how long the circuit stays open before a trial call.
	OpenDuration time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: config.DefaultFailureThreshold,
		OpenDuration:     config.DefaultOpenDuration,
	}
}

// FromConfig converts a configuration binding, filling unset fields
// with defaults.
func FromConfig(c config.CircuitBreakerConfig) Config {
	cfg := Config{
		FailureThreshold: c.FailureThreshold,
		OpenDuration:     c.OpenDuration.Duration(),
	}
	return cfg.withDefaults()
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.FailureThreshold < 1 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.OpenDuration <= 0 {
		c.OpenDuration = def.OpenDuration
	}
	return c
}

// options holds the settings shared by both engines.
type options struct {
	logger  observability.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// Option is a functional option for circuit breakers and the registry.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithClock overrides the time source. Only the native engine uses it.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger: observability.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// recordTransition logs a state change and exports it.
func (o options) recordTransition(name string, from, to State) {
	o.metrics.RecordCircuitTransition(name, from.String(), to.String())
	o.metrics.SetCircuitBreakerState(name, int(to))
	o.logger.Info("circuit breaker state changed",
		observability.String("name", name),
		observability.String("from", from.String()),
		observability.String("to", to.String()),
	)
}

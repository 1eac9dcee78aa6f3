package circuitbreaker

import (
	"context"
	"errors"

	"github.com/sony/gobreaker"

	"github.com/vyrodovalexey/gymgw/internal/util"
)

// GoBreaker adapts sony/gobreaker to the Breaker interface with the
// same semantics as the native engine: consecutive failures trip the
// circuit and half-open admits a single trial. gobreaker has no way to
// release a call uncounted, so ignored outcomes count as successes.
type GoBreaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

// NewGoBreaker creates a gobreaker-backed circuit breaker.
func NewGoBreaker(name string, cfg Config, opts ...Option) *GoBreaker {
	cfg = cfg.withDefaults()
	o := newOptions(opts)
	threshold := safeIntToUint32(cfg.FailureThreshold)

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return OutcomeOf(err) != OutcomeFailure
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			o.recordTransition(name, fromGobreaker(from), fromGobreaker(to))
		},
	}

	o.metrics.SetCircuitBreakerState(name, int(StateClosed))
	return &GoBreaker{name: name, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Name returns the name of the circuit breaker.
func (g *GoBreaker) Name() string {
	return g.name
}

// State returns the current state.
func (g *GoBreaker) State() State {
	return fromGobreaker(g.cb.State())
}

// Execute executes fn with circuit breaker protection.
func (g *GoBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return util.NewCircuitOpenError(g.name, g.State().String())
	}
	return err
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// safeIntToUint32 safely converts int to uint32.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}

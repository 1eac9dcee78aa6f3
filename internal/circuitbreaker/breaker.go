package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vyrodovalexey/gymgw/internal/observability"
	"github.com/vyrodovalexey/gymgw/internal/util"
)

// State represents the state of a circuit breaker. The numeric values
// are those exported by the state gauge.
type State int

const (
	// StateClosed indicates the circuit is closed and requests are allowed.
	StateClosed State = iota

	// StateHalfOpen indicates a single trial request is testing the backend.
	StateHalfOpen

	// StateOpen indicates the circuit is open and requests are rejected.
	StateOpen
)

// Outcome is what an admitted call reports back to the breaker.
type Outcome int

const (
	// OutcomeFailure counts towards the failure threshold.
	OutcomeFailure Outcome = iota

	// OutcomeSuccess resets the failure count.
	OutcomeSuccess

	// OutcomeIgnored releases the call without counting it. A half-open
	// trial that ends this way frees the slot for the next caller.
	OutcomeIgnored
)

// OutcomeOf maps a call error to its outcome. Requests abandoned by the
// client say nothing about backend health and are ignored.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, util.ErrClientCanceled):
		return OutcomeIgnored
	default:
		return OutcomeFailure
	}
}

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker guards calls to one backend binding.
type Breaker interface {
	// Name returns the binding name.
	Name() string

	// State returns the current state.
	State() State

	// Execute runs fn unless the circuit rejects the call, in which case
	// it returns a *util.CircuitOpenError without calling fn. The error
	// from fn is recorded through OutcomeOf and returned unchanged.
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
}

// CircuitBreaker is the native consecutive-failure circuit breaker.
//
// Closed counts consecutive failures and opens at the threshold. Open
// rejects every call until the open duration has elapsed; the first
// call after that becomes the only trial of HalfOpen, and its outcome
// closes or reopens the circuit.
type CircuitBreaker struct {
	name string
	cfg  Config
	opts options

	mu           sync.Mutex
	state        State
	failureCount int
	openedAt     time.Time
	trialPending bool

	// generation changes on every transition so that calls admitted in
	// an earlier state do not count against the current one.
	generation uint64
}

// NewCircuitBreaker creates a new circuit breaker in the closed state.
func NewCircuitBreaker(name string, cfg Config, opts ...Option) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:  name,
		cfg:   cfg.withDefaults(),
		opts:  newOptions(opts),
		state: StateClosed,
	}
	cb.opts.metrics.SetCircuitBreakerState(name, int(StateClosed))
	return cb
}

// Name returns the name of the circuit breaker.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// State returns the current state. An open circuit whose open
// duration has elapsed still reports open until a call arrives.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// FailureCount returns the consecutive failures recorded while closed.
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failureCount
}

// Execute executes fn with circuit breaker protection. A panic in fn is
// recorded as a failure and then propagated.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	done, err := cb.Allow()
	if err != nil {
		return err
	}

	outcome := OutcomeFailure
	defer func() { done(outcome) }()

	err = fn(ctx)
	outcome = OutcomeOf(err)
	return err
}

// Allow admits or rejects one call. When admitted, the returned done
// function must be called exactly once with the call's outcome.
func (cb *CircuitBreaker) Allow() (done func(Outcome), err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.opts.now().Sub(cb.openedAt) < cb.cfg.OpenDuration {
			return nil, util.NewCircuitOpenError(cb.name, cb.state.String())
		}
		cb.transitionTo(StateHalfOpen)
		cb.trialPending = true
	case StateHalfOpen:
		if cb.trialPending {
			return nil, util.NewCircuitOpenError(cb.name, cb.state.String())
		}
		cb.trialPending = true
	}

	gen := cb.generation
	var once sync.Once
	return func(outcome Outcome) {
		once.Do(func() { cb.record(gen, outcome) })
	}, nil
}

func (cb *CircuitBreaker) record(gen uint64, outcome Outcome) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if gen != cb.generation {
		return
	}

	if outcome == OutcomeIgnored {
		if cb.state == StateHalfOpen {
			cb.trialPending = false
		}
		return
	}

	success := outcome == OutcomeSuccess
	switch cb.state {
	case StateClosed:
		if success {
			cb.failureCount = 0
			return
		}
		cb.failureCount++
		if cb.failureCount >= cb.cfg.FailureThreshold {
			cb.open()
		}
	case StateHalfOpen:
		cb.trialPending = false
		if success {
			cb.failureCount = 0
			cb.transitionTo(StateClosed)
			return
		}
		cb.open()
	}
}

func (cb *CircuitBreaker) open() {
	cb.openedAt = cb.opts.now()
	cb.transitionTo(StateOpen)
	cb.opts.logger.Warn("circuit breaker opened",
		observability.String("name", cb.name),
		observability.Int("failures", cb.failureCount),
		observability.Duration("open_duration", cb.cfg.OpenDuration),
	)
	cb.failureCount = 0
}

func (cb *CircuitBreaker) transitionTo(newState State) {
	oldState := cb.state
	cb.state = newState
	cb.generation++
	cb.opts.recordTransition(cb.name, oldState, newState)
}

// Reset resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	cb.trialPending = false
	if cb.state != StateClosed {
		cb.transitionTo(StateClosed)
	}
}

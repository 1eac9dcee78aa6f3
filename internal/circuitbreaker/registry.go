package circuitbreaker

import (
	"fmt"
	"sort"

	"github.com/vyrodovalexey/gymgw/internal/config"
	"github.com/vyrodovalexey/gymgw/internal/observability"
)

// Registry holds one breaker per configured binding. It is built once
// at startup and read concurrently afterwards.
type Registry struct {
	breakers map[string]Breaker
}

// NewRegistry creates a breaker for every binding, using the engine
// each binding selects.
func NewRegistry(bindings []config.CircuitBreakerConfig, opts ...Option) (*Registry, error) {
	r := &Registry{breakers: make(map[string]Breaker, len(bindings))}
	o := newOptions(opts)

	for _, b := range bindings {
		if _, exists := r.breakers[b.Name]; exists {
			return nil, fmt.Errorf("duplicate circuit breaker: %s", b.Name)
		}

		cfg := FromConfig(b)
		switch b.Engine {
		case "", config.EngineNative:
			r.breakers[b.Name] = NewCircuitBreaker(b.Name, cfg, opts...)
		case config.EngineGobreaker:
			r.breakers[b.Name] = NewGoBreaker(b.Name, cfg, opts...)
		default:
			return nil, fmt.Errorf("circuit breaker %s: unknown engine %q", b.Name, b.Engine)
		}

		o.logger.Debug("created circuit breaker",
			observability.String("name", b.Name),
			observability.String("engine", b.Engine),
			observability.Int("failure_threshold", cfg.FailureThreshold),
			observability.Duration("open_duration", cfg.OpenDuration),
		)
	}

	return r, nil
}

// Get returns a breaker by name.
func (r *Registry) Get(name string) (Breaker, bool) {
	b, ok := r.breakers[name]
	return b, ok
}

// Names returns the binding names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// States returns the current state of every breaker.
func (r *Registry) States() map[string]State {
	states := make(map[string]State, len(r.breakers))
	for name, b := range r.breakers {
		states[name] = b.State()
	}
	return states
}

// Count returns the number of breakers in the registry.
func (r *Registry) Count() int {
	return len(r.breakers)
}

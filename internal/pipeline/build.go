package pipeline

import (
	"context"
	"fmt"

	"github.com/vyrodovalexey/gymgw/internal/aggregate"
	"github.com/vyrodovalexey/gymgw/internal/auth/jwt"
	"github.com/vyrodovalexey/gymgw/internal/authz"
	"github.com/vyrodovalexey/gymgw/internal/backend"
	"github.com/vyrodovalexey/gymgw/internal/circuitbreaker"
	"github.com/vyrodovalexey/gymgw/internal/config"
	"github.com/vyrodovalexey/gymgw/internal/fallback"
	"github.com/vyrodovalexey/gymgw/internal/observability"
	"github.com/vyrodovalexey/gymgw/internal/router"
)

// Components holds everything Build wires together, for callers that
// need more than the handler.
type Components struct {
	Pipeline *Pipeline
	Router   *router.Router
	Policy   *authz.Policy
	Breakers *circuitbreaker.Registry
	Pool     *backend.ConnectionPool
}

// Build creates the pipeline described by cfg. ctx bounds the
// background refresh of a remote key set.
func Build(
	ctx context.Context,
	cfg *config.GatewayConfig,
	logger observability.Logger,
	metrics *observability.Metrics,
) (*Components, error) {
	spec := &cfg.Spec

	r, err := router.New(spec.Routes)
	if err != nil {
		return nil, fmt.Errorf("failed to build router: %w", err)
	}

	policy, err := authz.NewPolicy(spec.Authorization,
		authz.WithPolicyLogger(logger),
		authz.WithPolicyMetrics(metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build authorization policy: %w", err)
	}

	resolver, err := backend.NewRoundRobinResolver(spec.Services)
	if err != nil {
		return nil, fmt.Errorf("failed to build service resolver: %w", err)
	}

	pool := backend.NewConnectionPool(backend.PoolConfigFrom(spec.Backend))
	client := backend.NewClient(resolver,
		backend.WithHTTPClient(pool.Client()),
		backend.WithDefaultTimeout(spec.Backend.Timeout.OrDefault(config.DefaultBackendTimeout)),
		backend.WithClientLogger(logger),
		backend.WithClientMetrics(metrics),
	)

	breakers, err := circuitbreaker.NewRegistry(spec.CircuitBreakers,
		circuitbreaker.WithLogger(logger),
		circuitbreaker.WithMetrics(metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build circuit breakers: %w", err)
	}

	opts := []Option{
		WithBreakers(breakers),
		WithFallbacks(fallback.NewResponder(metrics)),
		WithAggregator(aggregate.New(client, spec.Aggregation,
			aggregate.WithLogger(logger),
			aggregate.WithMetrics(metrics),
		)),
		WithLogger(logger),
		WithMetrics(metrics),
	}

	if spec.Authentication.JWT.Enabled {
		validator, err := jwt.NewValidator(ctx, spec.Authentication.JWT,
			jwt.WithValidatorLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to build token validator: %w", err)
		}
		opts = append(opts, WithValidator(validator))
	} else {
		logger.Warn("JWT authentication disabled, all requests are anonymous")
	}

	logger.Info("pipeline built",
		observability.Int("routes", len(spec.Routes)),
		observability.Int("authorization_rules", len(policy.Rules())),
		observability.Strings("circuit_breakers", breakers.Names()),
	)

	return &Components{
		Pipeline: New(r, policy, client, opts...),
		Router:   r,
		Policy:   policy,
		Breakers: breakers,
		Pool:     pool,
	}, nil
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"sync/atomic"

	"github.com/vyrodovalexey/gymgw/internal/circuitbreaker"
	"github.com/vyrodovalexey/gymgw/internal/config"
	"github.com/vyrodovalexey/gymgw/internal/gateway"
	"github.com/vyrodovalexey/gymgw/internal/observability"
	"github.com/vyrodovalexey/gymgw/internal/pipeline"
)

const defaultServiceName = "gymgw"

// application holds the running pieces of the gateway process.
type application struct {
	ctx     context.Context
	cfg     *config.GatewayConfig
	gateway *gateway.Gateway
	tracer  *observability.Tracer
	metrics *observability.Metrics
	logger  observability.Logger

	current atomic.Pointer[generation]
}

// generation is one build of the request pipeline. A reload builds a new
// generation and swaps it in; listeners are never rebuilt.
type generation struct {
	components *pipeline.Components
	handler    http.Handler
	cancel     context.CancelFunc
}

// newApplication wires metrics, tracing, the request pipeline and the
// gateway listeners from cfg.
func newApplication(
	ctx context.Context,
	cfg *config.GatewayConfig,
	logger observability.Logger,
) (*application, error) {
	metrics := observability.NewMetrics("gateway")
	metrics.SetBuildInfo(version, gitCommit, buildTime)

	tracer, err := initTracer(cfg.Spec.Observability.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	app := &application{
		ctx:     ctx,
		cfg:     cfg,
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}

	gen, err := app.build(cfg)
	if err != nil {
		_ = tracer.Shutdown(context.Background())
		return nil, err
	}
	app.current.Store(gen)

	gw, err := gateway.New(cfg,
		gateway.WithLogger(logger),
		gateway.WithRouteHandler(http.HandlerFunc(app.serve)),
		gateway.WithOpsHandler(gateway.OpsHandler(metrics, cfg.Spec.Observability.Metrics.Path, app.breakerStates)),
	)
	if err != nil {
		app.close(context.Background())
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}
	app.gateway = gw

	return app, nil
}

// initTracer creates the tracer described by the tracing section.
func initTracer(cfg config.TracingConfig) (*observability.Tracer, error) {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	return observability.NewTracer(observability.TracerConfig{
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: cfg.SamplingRate,
		Enabled:      cfg.Enabled,
	})
}

func (a *application) build(cfg *config.GatewayConfig) (*generation, error) {
	ctx, cancel := context.WithCancel(a.ctx)
	comps, err := pipeline.Build(ctx, cfg, a.logger, a.metrics)
	if err != nil {
		cancel()
		return nil, err
	}
	return &generation{
		components: comps,
		handler:    buildMiddlewareChain(comps.Pipeline, cfg, a.logger, a.tracer),
		cancel:     cancel,
	}, nil
}

func (a *application) serve(w http.ResponseWriter, r *http.Request) {
	a.current.Load().handler.ServeHTTP(w, r)
}

func (a *application) breakerStates() map[string]circuitbreaker.State {
	return a.current.Load().components.Breakers.States()
}

// reload swaps in a pipeline built from cfg. Breaker state starts over.
// The running pipeline stays in force when the build fails. Calls must
// not overlap.
func (a *application) reload(cfg *config.GatewayConfig) {
	if !reflect.DeepEqual(a.cfg.Spec.Listeners, cfg.Spec.Listeners) ||
		a.cfg.Spec.Observability.Metrics != cfg.Spec.Observability.Metrics {
		a.logger.Warn("listener and metrics changes take effect after restart")
	}

	gen, err := a.build(cfg)
	if err != nil {
		a.logger.Error("failed to rebuild pipeline, keeping current configuration", observability.Error(err))
		return
	}

	old := a.current.Swap(gen)
	old.retire()
	a.cfg = cfg

	a.logger.Info("pipeline reloaded",
		observability.Int("routes", len(cfg.Spec.Routes)),
		observability.Int("services", len(cfg.Spec.Services)),
	)
}

func (g *generation) retire() {
	g.cancel()
	g.components.Pool.CloseIdleConnections()
}

// close flushes the tracer and releases the current pipeline.
func (a *application) close(ctx context.Context) {
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Error("failed to shutdown tracer", observability.Error(err))
	}
	if gen := a.current.Load(); gen != nil {
		gen.retire()
	}
}

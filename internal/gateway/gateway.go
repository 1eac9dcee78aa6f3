package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/gymgw/internal/config"
	"github.com/vyrodovalexey/gymgw/internal/observability"
)

// State represents the gateway state.
type State int32

const (
	// StateStopped indicates the gateway is stopped.
	StateStopped State = iota
	// StateStarting indicates the gateway is starting.
	StateStarting
	// StateRunning indicates the gateway is running.
	StateRunning
	// StateStopping indicates the gateway is stopping.
	StateStopping
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Gateway owns the traffic listeners and the optional metrics listener.
type Gateway struct {
	config      *config.GatewayConfig
	logger      observability.Logger
	engine      *gin.Engine
	listeners   []*Listener
	ops         *Listener
	state       atomic.Int32
	startTime   time.Time
	startTimeMu sync.RWMutex

	routeHandler http.Handler
	opsHandler   http.Handler

	shutdownTimeout time.Duration
}

// Option is a functional option for configuring the gateway.
type Option func(*Gateway)

// WithLogger sets the logger for the gateway.
func WithLogger(logger observability.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithShutdownTimeout sets the shutdown timeout.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		g.shutdownTimeout = timeout
	}
}

// WithRouteHandler sets the handler serving all client traffic.
func WithRouteHandler(handler http.Handler) Option {
	return func(g *Gateway) {
		g.routeHandler = handler
	}
}

// WithOpsHandler sets the handler of the metrics listener. The
// listener is started only when metrics are enabled with a port.
func WithOpsHandler(handler http.Handler) Option {
	return func(g *Gateway) {
		g.opsHandler = handler
	}
}

// New creates a new Gateway instance.
func New(cfg *config.GatewayConfig, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	g := &Gateway{
		config:          cfg,
		logger:          observability.NopLogger(),
		shutdownTimeout: cfg.Spec.ShutdownTimeout.OrDefault(config.DefaultShutdownTimeout),
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.routeHandler == nil {
		return nil, fmt.Errorf("%w: route handler is required", ErrInvalidConfig)
	}

	g.state.Store(int32(StateStopped))

	return g, nil
}

// Start starts the gateway.
func (g *Gateway) Start(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return ErrGatewayNotStopped
	}

	g.logger.Info("starting gateway",
		observability.String("name", g.config.Metadata.Name),
	)

	gin.SetMode(gin.ReleaseMode)
	g.engine = gin.New()
	g.setupRoutes()

	if err := g.createListeners(); err != nil { //nolint:contextcheck // Listener creation doesn't need context
		g.state.Store(int32(StateStopped))
		return fmt.Errorf("failed to create listeners: %w", err)
	}

	for _, listener := range g.allListeners() {
		if err := listener.Start(ctx); err != nil {
			g.stopListeners(ctx)
			g.state.Store(int32(StateStopped))
			return fmt.Errorf("failed to start listener %s: %w", listener.Name(), err)
		}
	}

	g.startTimeMu.Lock()
	g.startTime = time.Now()
	g.startTimeMu.Unlock()
	g.state.Store(int32(StateRunning))

	g.logger.Info("gateway started",
		observability.String("name", g.config.Metadata.Name),
		observability.Int("http_listeners", len(g.listeners)),
		observability.Bool("metrics_listener", g.ops != nil),
	)

	return nil
}

// Stop stops the gateway gracefully.
func (g *Gateway) Stop(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return ErrGatewayNotRunning
	}

	g.logger.Info("stopping gateway",
		observability.String("name", g.config.Metadata.Name),
	)

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.shutdownTimeout)
		defer cancel()
	}

	g.stopListeners(ctx)

	g.state.Store(int32(StateStopped))

	g.logger.Info("gateway stopped",
		observability.String("name", g.config.Metadata.Name),
	)

	return nil
}

// State returns the current gateway state.
func (g *Gateway) State() State {
	return State(g.state.Load())
}

// IsRunning returns true if the gateway is running.
func (g *Gateway) IsRunning() bool {
	return g.State() == StateRunning
}

// Uptime returns the gateway uptime.
func (g *Gateway) Uptime() time.Duration {
	g.startTimeMu.RLock()
	defer g.startTimeMu.RUnlock()
	if g.startTime.IsZero() {
		return 0
	}
	return time.Since(g.startTime)
}

// Engine returns the gin engine. It is nil before Start.
func (g *Gateway) Engine() *gin.Engine {
	return g.engine
}

// Listeners returns the traffic listeners.
func (g *Gateway) Listeners() []*Listener {
	return g.listeners
}

// OpsListener returns the metrics listener, or nil when disabled.
func (g *Gateway) OpsListener() *Listener {
	return g.ops
}

// setupRoutes sends every request to the route handler. No gin routes
// are registered, so gin never redirects or answers 405 on its own.
func (g *Gateway) setupRoutes() {
	g.engine.Use(gin.Recovery())
	g.engine.NoRoute(gin.WrapH(g.routeHandler))
}

func (g *Gateway) createListeners() error {
	g.listeners = make([]*Listener, 0, len(g.config.Spec.Listeners))

	for _, listenerCfg := range g.config.Spec.Listeners {
		listener, err := NewListener(listenerCfg, g.engine, WithListenerLogger(g.logger))
		if err != nil {
			return fmt.Errorf("failed to create listener %s: %w", listenerCfg.Name, err)
		}
		g.listeners = append(g.listeners, listener)
	}

	g.ops = nil
	metricsCfg := g.config.Spec.Observability.Metrics
	if g.opsHandler != nil && metricsCfg.Enabled && metricsCfg.Port > 0 {
		ops, err := NewListener(config.Listener{Name: "metrics", Port: metricsCfg.Port},
			g.opsHandler, WithListenerLogger(g.logger))
		if err != nil {
			return fmt.Errorf("failed to create metrics listener: %w", err)
		}
		g.ops = ops
	}

	return nil
}

func (g *Gateway) allListeners() []*Listener {
	all := append([]*Listener(nil), g.listeners...)
	if g.ops != nil {
		all = append(all, g.ops)
	}
	return all
}

func (g *Gateway) stopListeners(ctx context.Context) {
	var wg sync.WaitGroup

	for _, listener := range g.allListeners() {
		wg.Add(1)
		go func(l *Listener) {
			defer wg.Done()
			if err := l.Stop(ctx); err != nil {
				g.logger.Error("failed to stop listener",
					observability.String("name", l.Name()),
					observability.Error(err),
				)
			}
		}(listener)
	}

	wg.Wait()
}

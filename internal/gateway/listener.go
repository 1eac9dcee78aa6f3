package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/vyrodovalexey/gymgw/internal/config"
	"github.com/vyrodovalexey/gymgw/internal/observability"
)

// maxHeaderBytes bounds request header size.
const maxHeaderBytes = 1 << 20

// Listener represents an HTTP listener.
type Listener struct {
	config  config.Listener
	server  *http.Server
	handler http.Handler
	logger  observability.Logger
	running atomic.Bool

	mu   sync.RWMutex
	addr net.Addr
}

// ListenerOption is a functional option for configuring a listener.
type ListenerOption func(*Listener)

// WithListenerLogger sets the logger for the listener.
func WithListenerLogger(logger observability.Logger) ListenerOption {
	return func(l *Listener) {
		l.logger = logger
	}
}

// NewListener creates a new listener.
func NewListener(
	cfg config.Listener,
	handler http.Handler,
	opts ...ListenerOption,
) (*Listener, error) {
	if handler == nil {
		return nil, fmt.Errorf("listener %s: handler is required", cfg.Name)
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("listener %s: invalid port %d", cfg.Name, cfg.Port)
	}

	l := &Listener{
		config:  cfg,
		handler: handler,
		logger:  observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Name returns the listener name.
func (l *Listener) Name() string {
	return l.config.Name
}

// Port returns the configured listener port.
func (l *Listener) Port() int {
	return l.config.Port
}

// Address returns the configured listener address.
func (l *Listener) Address() string {
	bind := l.config.Bind
	if bind == "" {
		bind = "0.0.0.0"
	}
	return net.JoinHostPort(bind, fmt.Sprint(l.config.Port))
}

// BoundAddr returns the address the listener is bound to, which differs
// from Address when the configured port is 0. It is nil until Start.
func (l *Listener) BoundAddr() net.Addr {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.addr
}

// Start starts the listener.
func (l *Listener) Start(ctx context.Context) error {
	if l.running.Load() {
		return fmt.Errorf("listener %s is already running", l.config.Name)
	}

	addr := l.Address()
	timeouts := l.config.Timeouts

	l.server = &http.Server{
		Addr:              addr,
		Handler:           l.handler,
		ReadTimeout:       timeouts.EffectiveRead(),
		ReadHeaderTimeout: timeouts.EffectiveReadHeader(),
		WriteTimeout:      timeouts.EffectiveWrite(),
		IdleTimeout:       timeouts.EffectiveIdle(),
		MaxHeaderBytes:    maxHeaderBytes,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	l.mu.Lock()
	l.addr = ln.Addr()
	l.mu.Unlock()

	l.running.Store(true)

	l.logger.Info("listener started",
		observability.String("name", l.config.Name),
		observability.String("address", ln.Addr().String()),
	)

	go l.serve(ln)

	return nil
}

func (l *Listener) serve(ln net.Listener) {
	err := l.server.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.logger.Error("listener error",
			observability.String("name", l.config.Name),
			observability.Error(err),
		)
	}
	l.running.Store(false)
}

// Stop stops the listener gracefully.
func (l *Listener) Stop(ctx context.Context) error {
	if !l.running.Load() {
		return nil
	}

	l.logger.Info("stopping listener",
		observability.String("name", l.config.Name),
	)

	if err := l.server.Shutdown(ctx); err != nil {
		if closeErr := l.server.Close(); closeErr != nil {
			return fmt.Errorf("failed to close listener: %w", closeErr)
		}
		return fmt.Errorf("failed to shutdown listener gracefully: %w", err)
	}

	l.running.Store(false)

	l.logger.Info("listener stopped",
		observability.String("name", l.config.Name),
	)

	return nil
}

// IsRunning returns true if the listener is running.
func (l *Listener) IsRunning() bool {
	return l.running.Load()
}

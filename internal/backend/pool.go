package backend

import (
	"net"
	"net/http"
	"time"

	"github.com/vyrodovalexey/gymgw/internal/config"
)

// PoolConfig contains connection pool configuration.
type PoolConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	DialTimeout         time.Duration
}

// DefaultPoolConfig returns default pool configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         5 * time.Second,
	}
}

// PoolConfigFrom fills a pool configuration from the backend settings.
func PoolConfigFrom(cfg config.BackendConfig) PoolConfig {
	pc := DefaultPoolConfig()
	if cfg.MaxIdleConns > 0 {
		pc.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.MaxIdleConnsPerHost > 0 {
		pc.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	}
	pc.IdleConnTimeout = cfg.IdleConnTimeout.OrDefault(pc.IdleConnTimeout)
	return pc
}

// ConnectionPool manages HTTP connections.
type ConnectionPool struct {
	transport *http.Transport
	client    *http.Client
}

// NewConnectionPool creates a new connection pool. The client has no
// overall timeout; every call bounds itself through its context.
func NewConnectionPool(cfg PoolConfig) *ConnectionPool {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &ConnectionPool{
		transport: transport,
		client:    &http.Client{Transport: transport},
	}
}

// Client returns the HTTP client.
func (p *ConnectionPool) Client() *http.Client {
	return p.client
}

// CloseIdleConnections closes idle connections.
func (p *ConnectionPool) CloseIdleConnections() {
	p.transport.CloseIdleConnections()
}

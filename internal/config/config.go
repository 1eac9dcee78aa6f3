// Package config provides configuration management for the gym gateway.
package config

import "time"

// APIVersion and Kind identify a gateway configuration document.
const (
	APIVersion = "gateway.gymgw.io/v1"
	Kind       = "Gateway"
)

// Default timeouts.
const (
	DefaultReadTimeout       = 30 * time.Second
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 15 * time.Second
	DefaultBackendTimeout    = 5 * time.Second
)

// GatewayConfig is the root configuration document.
type GatewayConfig struct {
	APIVersion string      `yaml:"apiVersion" json:"apiVersion"`
	Kind       string      `yaml:"kind" json:"kind"`
	Metadata   Metadata    `yaml:"metadata" json:"metadata"`
	Spec       GatewaySpec `yaml:"spec" json:"spec"`
}

// Metadata contains gateway metadata.
type Metadata struct {
	Name   string            `yaml:"name" json:"name"`
	Labels map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// GatewaySpec contains the gateway settings.
type GatewaySpec struct {
	Listeners       []Listener             `yaml:"listeners" json:"listeners"`
	Routes          []Route                `yaml:"routes" json:"routes"`
	Services        []Service              `yaml:"services" json:"services"`
	Backend         BackendConfig          `yaml:"backend,omitempty" json:"backend,omitempty"`
	Authentication  AuthenticationConfig   `yaml:"authentication,omitempty" json:"authentication,omitempty"`
	Authorization   AuthorizationConfig    `yaml:"authorization,omitempty" json:"authorization,omitempty"`
	CircuitBreakers []CircuitBreakerConfig `yaml:"circuitBreakers,omitempty" json:"circuitBreakers,omitempty"`
	Aggregation     AggregationConfig      `yaml:"aggregation,omitempty" json:"aggregation,omitempty"`
	Observability   ObservabilityConfig    `yaml:"observability,omitempty" json:"observability,omitempty"`
	ShutdownTimeout Duration               `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`
}

// Listener represents a network listener configuration.
type Listener struct {
	Name     string            `yaml:"name" json:"name"`
	Port     int               `yaml:"port" json:"port"`
	Bind     string            `yaml:"bind,omitempty" json:"bind,omitempty"`
	Timeouts *ListenerTimeouts `yaml:"timeouts,omitempty" json:"timeouts,omitempty"`
}

// ListenerTimeouts contains timeout configuration for HTTP listeners.
type ListenerTimeouts struct {
	ReadTimeout       Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	ReadHeaderTimeout Duration `yaml:"readHeaderTimeout,omitempty" json:"readHeaderTimeout,omitempty"`
	WriteTimeout      Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
	IdleTimeout       Duration `yaml:"idleTimeout,omitempty" json:"idleTimeout,omitempty"`
}

// EffectiveRead returns the read timeout, falling back to the default.
func (t *ListenerTimeouts) EffectiveRead() time.Duration {
	if t == nil {
		return DefaultReadTimeout
	}
	return t.ReadTimeout.OrDefault(DefaultReadTimeout)
}

// EffectiveReadHeader returns the read header timeout, falling back to the default.
func (t *ListenerTimeouts) EffectiveReadHeader() time.Duration {
	if t == nil {
		return DefaultReadHeaderTimeout
	}
	return t.ReadHeaderTimeout.OrDefault(DefaultReadHeaderTimeout)
}

// EffectiveWrite returns the write timeout, falling back to the default.
func (t *ListenerTimeouts) EffectiveWrite() time.Duration {
	if t == nil {
		return DefaultWriteTimeout
	}
	return t.WriteTimeout.OrDefault(DefaultWriteTimeout)
}

// EffectiveIdle returns the idle timeout, falling back to the default.
func (t *ListenerTimeouts) EffectiveIdle() time.Duration {
	if t == nil {
		return DefaultIdleTimeout
	}
	return t.IdleTimeout.OrDefault(DefaultIdleTimeout)
}

// Service is a logical backend service and its instances.
type Service struct {
	Name      string   `yaml:"name" json:"name"`
	Instances []string `yaml:"instances" json:"instances"`
}

// BackendConfig holds defaults for outbound calls.
type BackendConfig struct {
	Timeout             Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	MaxIdleConns        int      `yaml:"maxIdleConns,omitempty" json:"maxIdleConns,omitempty"`
	MaxIdleConnsPerHost int      `yaml:"maxIdleConnsPerHost,omitempty" json:"maxIdleConnsPerHost,omitempty"`
	IdleConnTimeout     Duration `yaml:"idleConnTimeout,omitempty" json:"idleConnTimeout,omitempty"`
}

// CircuitBreakerConfig configures one circuit breaker binding.
type CircuitBreakerConfig struct {
	Name             string   `yaml:"name" json:"name"`
	Engine           string   `yaml:"engine,omitempty" json:"engine,omitempty"`
	FailureThreshold int      `yaml:"failureThreshold" json:"failureThreshold"`
	OpenDuration     Duration `yaml:"openDuration" json:"openDuration"`
}

// Circuit breaker engines.
const (
	EngineNative    = "native"
	EngineGobreaker = "gobreaker"
)

// AggregationConfig configures the member summary sources.
type AggregationConfig struct {
	Miembro SourceConfig `yaml:"miembro" json:"miembro"`
	Clases  SourceConfig `yaml:"clases" json:"clases"`
	Pagos   SourceConfig `yaml:"pagos" json:"pagos"`
	Timeout Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// SourceConfig names the service and path template of one aggregation
// source. The template contains an {id} placeholder.
type SourceConfig struct {
	Service string `yaml:"service" json:"service"`
	Path    string `yaml:"path" json:"path"`
}

// ObservabilityConfig represents observability configuration.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty"`
	Tracing TracingConfig `yaml:"tracing,omitempty" json:"tracing,omitempty"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level     string `yaml:"level,omitempty" json:"level,omitempty"`
	Format    string `yaml:"format,omitempty" json:"format,omitempty"`
	Output    string `yaml:"output,omitempty" json:"output,omitempty"`
	AccessLog *bool  `yaml:"accessLog,omitempty" json:"accessLog,omitempty"`
}

// AccessLogEnabled reports whether access logging is on. It defaults to true.
func (c LoggingConfig) AccessLogEnabled() bool {
	return c.AccessLog == nil || *c.AccessLog
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
	Port    int    `yaml:"port,omitempty" json:"port,omitempty"`
}

// TracingConfig represents tracing configuration.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	SamplingRate float64 `yaml:"samplingRate,omitempty" json:"samplingRate,omitempty"`
	OTLPEndpoint string  `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`
	ServiceName  string  `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
}

// FindCircuitBreaker returns the named breaker config.
func (s *GatewaySpec) FindCircuitBreaker(name string) (CircuitBreakerConfig, bool) {
	for _, cb := range s.CircuitBreakers {
		if cb.Name == name {
			return cb, true
		}
	}
	return CircuitBreakerConfig{}, false
}

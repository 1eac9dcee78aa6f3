package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UnmatchedRoute is the route label for requests that matched no route.
const UnmatchedRoute = "unmatched"

// Metrics holds all Prometheus metrics for the gateway.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requestsTotal        *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	backendCallDuration  *prometheus.HistogramVec
	circuitBreakerState  *prometheus.GaugeVec
	circuitTransitions   *prometheus.CounterVec
	fallbackResponses    *prometheus.CounterVec
	aggregationPartials  *prometheus.CounterVec
	authorizationDenials *prometheus.CounterVec
	buildInfo            *prometheus.GaugeVec
	registry             *prometheus.Registry
}

// NewMetrics creates a new Metrics instance on a private registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "gateway"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	m.backendCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_call_duration_seconds",
			Help:      "Backend call duration in seconds by outcome",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "outcome"},
	)

	m.circuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help: "Circuit breaker state " +
				"(0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	m.circuitTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	m.fallbackResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_responses_total",
			Help:      "Fallback payloads served",
		},
		[]string{"fallback"},
	)

	m.aggregationPartials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_source_failures_total",
			Help:      "Aggregation sources replaced by a placeholder",
		},
		[]string{"source"},
	)

	m.authorizationDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorization_denials_total",
			Help:      "Requests denied by the authorization policy",
		},
		[]string{"reason"},
	)

	m.buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "commit", "build_time"},
	)

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.backendCallDuration,
		m.circuitBreakerState,
		m.circuitTransitions,
		m.fallbackResponses,
		m.aggregationPartials,
		m.authorizationDenials,
		m.buildInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RecordRequest records a completed HTTP request.
// The route parameter must be the matched route name, not the raw path.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = UnmatchedRoute
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordBackendCall records the duration and outcome of a backend call.
func (m *Metrics) RecordBackendCall(service, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.backendCallDuration.WithLabelValues(service, outcome).Observe(duration.Seconds())
}

// SetCircuitBreakerState sets the circuit breaker state gauge.
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.circuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordCircuitTransition counts a circuit breaker state change.
func (m *Metrics) RecordCircuitTransition(name, from, to string) {
	if m == nil {
		return
	}
	m.circuitTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordFallback counts a fallback payload served.
func (m *Metrics) RecordFallback(id string) {
	if m == nil {
		return
	}
	m.fallbackResponses.WithLabelValues(id).Inc()
}

// RecordAggregationPlaceholder counts a placeholder substituted for a failed source.
func (m *Metrics) RecordAggregationPlaceholder(source string) {
	if m == nil {
		return
	}
	m.aggregationPartials.WithLabelValues(source).Inc()
}

// RecordAuthorizationDenial counts a request rejected with 401 or 403.
func (m *Metrics) RecordAuthorizationDenial(reason string) {
	if m == nil {
		return
	}
	m.authorizationDenials.WithLabelValues(reason).Inc()
}

// SetBuildInfo sets the build information metric.
func (m *Metrics) SetBuildInfo(version, commit, buildTime string) {
	if m == nil {
		return
	}
	m.buildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		m.registry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

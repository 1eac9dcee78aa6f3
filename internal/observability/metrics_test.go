package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	require.NotNil(t, m.Counter)
	return m.Counter.GetValue()
}

func TestMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")
	m.RecordRequest(http.MethodGet, "miembros-service", http.StatusOK, 10*time.Millisecond)
	m.RecordRequest(http.MethodGet, "miembros-service", http.StatusOK, 20*time.Millisecond)
	m.RecordRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	assert.Equal(t, float64(2), counterValue(t, m.requestsTotal.WithLabelValues("GET", "miembros-service", "200")))
	assert.Equal(t, float64(1), counterValue(t, m.requestsTotal.WithLabelValues("GET", UnmatchedRoute, "404")))
}

func TestMetrics_CircuitBreaker(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")
	m.SetCircuitBreakerState("pagos", 2)
	m.RecordCircuitTransition("pagos", "closed", "open")

	g := &dto.Metric{}
	require.NoError(t, m.circuitBreakerState.WithLabelValues("pagos").Write(g))
	assert.Equal(t, float64(2), g.Gauge.GetValue())
	assert.Equal(t, float64(1), counterValue(t, m.circuitTransitions.WithLabelValues("pagos", "closed", "open")))
}

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	m := NewMetrics("")
	m.RecordFallback("pagos-fallback")
	m.RecordAggregationPlaceholder("pagos")
	m.RecordAuthorizationDenial("forbidden")
	m.RecordBackendCall("pagos-service", "success", 5*time.Millisecond)
	m.SetBuildInfo("v1", "abc", "now")

	assert.Equal(t, float64(1), counterValue(t, m.fallbackResponses.WithLabelValues("pagos-fallback")))
	assert.Equal(t, float64(1), counterValue(t, m.aggregationPartials.WithLabelValues("pagos")))
	assert.Equal(t, float64(1), counterValue(t, m.authorizationDenials.WithLabelValues("forbidden")))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["gateway_backend_call_duration_seconds"])
	assert.True(t, names["gateway_build_info"])
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("GET", "x", 200, time.Millisecond)
		m.RecordBackendCall("svc", "success", time.Millisecond)
		m.SetCircuitBreakerState("x", 0)
		m.RecordCircuitTransition("x", "closed", "open")
		m.RecordFallback("fallback")
		m.RecordAggregationPlaceholder("miembro")
		m.RecordAuthorizationDenial("unauthenticated")
		m.SetBuildInfo("v", "c", "t")
	})
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")
	m.RecordRequest(http.MethodPost, "pagos-procesar", http.StatusServiceUnavailable, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_requests_total{method="POST",route="pagos-procesar",status="503"} 1`)
}

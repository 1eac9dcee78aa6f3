package gateway

import (
	"net/http"
	"time"

	"github.com/vyrodovalexey/gymgw/internal/circuitbreaker"
	"github.com/vyrodovalexey/gymgw/internal/config"
	"github.com/vyrodovalexey/gymgw/internal/observability"
	"github.com/vyrodovalexey/gymgw/internal/util"
)

// HealthPath is the path of the health document on the metrics listener.
const HealthPath = "/health"

// Health statuses.
const (
	StatusUp       = "UP"
	StatusDegraded = "DEGRADED"
)

// HealthResponse is the health document.
type HealthResponse struct {
	Status          string            `json:"status"`
	Timestamp       string            `json:"timestamp"`
	CircuitBreakers map[string]string `json:"circuitBreakers,omitempty"`
}

// OpsHandler serves metrics at metricsPath and the health document at
// HealthPath. Any open circuit reports the gateway as DEGRADED; the
// status code stays 200 because the gateway itself can still serve
// fallbacks.
func OpsHandler(
	metrics *observability.Metrics,
	metricsPath string,
	states func() map[string]circuitbreaker.State,
) http.Handler {
	if metricsPath == "" {
		metricsPath = config.DefaultMetricsPath
	}

	mux := http.NewServeMux()
	if metrics != nil {
		mux.Handle(metricsPath, metrics.Handler())
	}
	mux.HandleFunc(HealthPath, func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:    StatusUp,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if states != nil {
			resp.CircuitBreakers = make(map[string]string)
			for name, state := range states() {
				resp.CircuitBreakers[name] = state.String()
				if state == circuitbreaker.StateOpen {
					resp.Status = StatusDegraded
				}
			}
		}
		util.WriteJSON(w, http.StatusOK, resp)
	})
	return mux
}

// Package fallback serves the fixed degraded-service responses used
// when a backend is unreachable or its circuit is open.
package fallback

import (
	"net/http"

	"github.com/vyrodovalexey/gymgw/internal/config"
	"github.com/vyrodovalexey/gymgw/internal/observability"
	"github.com/vyrodovalexey/gymgw/internal/util"
)

// TransactionFailed is the transaccion value of payment fallbacks.
const TransactionFailed = "fallida"

// Payload is a fallback response body.
type Payload struct {
	Mensaje     string `json:"mensaje"`
	Estado      string `json:"estado"`
	Transaccion string `json:"transaccion,omitempty"`
}

var payloads = map[string]Payload{
	config.FallbackDefault: {
		Mensaje: "Lo sentimos, el servicio no está disponible en este momento. Por favor, inténtelo más tarde.",
		Estado:  util.ErrorStatus,
	},
	config.FallbackMiembros: {
		Mensaje: "El servicio de miembros no está disponible en este momento. Por favor, inténtelo más tarde.",
		Estado:  util.ErrorStatus,
	},
	config.FallbackClases: {
		Mensaje: "El servicio de clases no está disponible en este momento. Por favor, inténtelo más tarde.",
		Estado:  util.ErrorStatus,
	},
	config.FallbackPagos: {
		Mensaje:     "El servicio de pagos no está disponible en este momento. Por favor, inténtelo más tarde.",
		Estado:      util.ErrorStatus,
		Transaccion: TransactionFailed,
	},
}

// Responder produces fallback responses. It has no side effects
// besides metrics and never fails.
type Responder struct {
	metrics *observability.Metrics
}

// NewResponder creates a responder. metrics may be nil.
func NewResponder(metrics *observability.Metrics) *Responder {
	return &Responder{metrics: metrics}
}

// Respond returns the payload for id. Unknown ids get the default payload.
func (r *Responder) Respond(id string) Payload {
	if p, ok := payloads[id]; ok {
		return p
	}
	return payloads[config.FallbackDefault]
}

// Write writes the payload for id with status 503.
func (r *Responder) Write(w http.ResponseWriter, id string) {
	if _, ok := payloads[id]; !ok {
		id = config.FallbackDefault
	}
	r.metrics.RecordFallback(id)
	util.WriteJSON(w, http.StatusServiceUnavailable, r.Respond(id))
}

// Known reports whether id has its own payload.
func Known(id string) bool {
	_, ok := payloads[id]
	return ok
}

package util

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorStatus is the value of the estado field in every gateway error body.
const ErrorStatus = "error"

// ErrorBody is the JSON body written for gateway-generated errors.
type ErrorBody struct {
	Estado  string `json:"estado"`
	Mensaje string `json:"mensaje"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// WriteJSONError writes an error body with estado set to "error".
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	data, _ := json.Marshal(ErrorBody{Estado: ErrorStatus, Mensaje: message})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// WriteError maps err onto a status code and writes an error body.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFromError(err)
	WriteJSONError(w, status, messageForStatus(status, err))
}

// messageForStatus returns the client-facing message. Details of
// server-side failures are not exposed.
func messageForStatus(status int, err error) string {
	switch status {
	case http.StatusNotFound:
		return "Recurso no encontrado"
	case http.StatusUnauthorized:
		return "No autenticado"
	case http.StatusForbidden:
		return "Acceso denegado"
	case http.StatusBadRequest:
		var malformed *MalformedRequestError
		if errors.As(err, &malformed) {
			return malformed.Message
		}
		return err.Error()
	case StatusClientClosedRequest:
		return "Solicitud cancelada por el cliente"
	case http.StatusBadGateway:
		return "Error de conexión con el servicio"
	case http.StatusGatewayTimeout:
		return "Tiempo de espera agotado"
	case http.StatusServiceUnavailable:
		return "Servicio no disponible"
	default:
		return "Error interno del servidor"
	}
}

// StatusCapturingResponseWriter wraps http.ResponseWriter to track status code
// and response size for access logging and metrics.
type StatusCapturingResponseWriter struct {
	http.ResponseWriter
	StatusCode    int
	BytesWritten  int
	HeaderWritten bool
}

// NewStatusCapturingResponseWriter creates a new StatusCapturingResponseWriter
// wrapping the provided http.ResponseWriter with a default status of 200 OK.
func NewStatusCapturingResponseWriter(w http.ResponseWriter) *StatusCapturingResponseWriter {
	return &StatusCapturingResponseWriter{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

// WriteHeader captures the status code and writes it to the underlying ResponseWriter.
func (w *StatusCapturingResponseWriter) WriteHeader(code int) {
	if w.HeaderWritten {
		return
	}
	w.StatusCode = code
	w.HeaderWritten = true
	w.ResponseWriter.WriteHeader(code)
}

// Write writes data to the underlying ResponseWriter and marks header as written.
func (w *StatusCapturingResponseWriter) Write(b []byte) (int, error) {
	if !w.HeaderWritten {
		w.HeaderWritten = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.BytesWritten += n
	return n, err
}

// Flush implements http.Flusher interface for streaming support.
func (w *StatusCapturingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Compile-time interface assertion.
var _ http.Flusher = (*StatusCapturingResponseWriter)(nil)

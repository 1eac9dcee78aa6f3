package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/gymgw/internal/observability"
)

const (
	// RequestIDHeader is the header name for request ID.
	RequestIDHeader = "X-Request-ID"

	// maxRequestIDLength bounds accepted client-supplied ids.
	maxRequestIDLength = 128
)

// RequestID returns a middleware that adds a request ID to each request.
func RequestID() func(http.Handler) http.Handler {
	return RequestIDWithGenerator(func() string { return uuid.New().String() })
}

// RequestIDWithGenerator returns a middleware that uses a custom ID generator.
// A client-supplied id is kept unless it is too long.
func RequestIDWithGenerator(generator func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" || len(requestID) > maxRequestIDLength {
				requestID = generator()
				r.Header.Set(RequestIDHeader, requestID)
			}

			ctx := observability.ContextWithRequestID(r.Context(), requestID)
			r = r.WithContext(ctx)

			w.Header().Set(RequestIDHeader, requestID)

			next.ServeHTTP(w, r)
		})
	}
}

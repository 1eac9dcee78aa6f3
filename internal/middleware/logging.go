package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/vyrodovalexey/gymgw/internal/observability"
	"github.com/vyrodovalexey/gymgw/internal/util"
)

// AccessLog returns a middleware that logs one line per request with
// the matched route, status, size and latency.
func AccessLog(logger observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx, slot := util.ContextWithRouteSlot(r.Context())
			r = r.WithContext(ctx)

			rw := util.NewStatusCapturingResponseWriter(w)

			next.ServeHTTP(rw, r)

			duration := time.Since(start)

			route := slot.Name()
			if route == "" {
				route = observability.UnmatchedRoute
			}

			log := logger.WithContext(r.Context())
			fields := []observability.Field{
				observability.String("method", r.Method),
				observability.String("path", r.URL.Path),
				observability.String("query", r.URL.RawQuery),
				observability.Int("status", rw.StatusCode),
				observability.Int("size", rw.BytesWritten),
				observability.Duration("latency", duration),
				observability.String("client_ip", clientIP(r)),
				observability.String("user_agent", r.UserAgent()),
				observability.String("route", route),
			}

			switch {
			case rw.StatusCode >= http.StatusInternalServerError:
				log.Warn("access", fields...)
			default:
				log.Info("access", fields...)
			}
		})
	}
}

// clientIP returns the host part of the peer address. Forwarding
// headers are not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/vyrodovalexey/gymgw/internal/observability"
	"github.com/vyrodovalexey/gymgw/internal/util"
)

// Recovery returns a middleware that recovers from panics and answers
// with a 500 JSON error body.
func Recovery(logger observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}

				logger.WithContext(r.Context()).Error("panic recovered",
					observability.String("path", r.URL.Path),
					observability.String("method", r.Method),
					observability.Any("error", err),
					observability.String("stack", string(debug.Stack())),
				)

				util.WriteJSONError(w, http.StatusInternalServerError, "Error interno del servidor")
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Chain composes middlewares so the first one is the outermost.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

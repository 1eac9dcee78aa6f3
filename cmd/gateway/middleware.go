package main

import (
	"net/http"

	"github.com/vyrodovalexey/gymgw/internal/config"
	"github.com/vyrodovalexey/gymgw/internal/middleware"
	"github.com/vyrodovalexey/gymgw/internal/observability"
)

// buildMiddlewareChain wraps the pipeline. The execution order
// (outermost first) is Recovery -> RequestID -> Tracing -> AccessLog ->
// [pipeline]. The access log runs inside tracing so its lines carry the
// trace id.
func buildMiddlewareChain(
	handler http.Handler,
	cfg *config.GatewayConfig,
	logger observability.Logger,
	tracer *observability.Tracer,
) http.Handler {
	mws := []func(http.Handler) http.Handler{
		middleware.Recovery(logger),
		middleware.RequestID(),
		observability.TracingMiddleware(tracer),
	}
	if cfg.Spec.Observability.Logging.AccessLogEnabled() {
		mws = append(mws, middleware.AccessLog(logger))
	}
	return middleware.Chain(handler, mws...)
}

// Package observability provides logging, metrics, and tracing
// for the gym gateway.
//
// # Logging
//
// The Logger interface wraps zap:
//
//	logger, err := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("request processed",
//	    observability.String("route", "pagos-service"),
//	    observability.Int("status", 200),
//	)
//
// # Metrics
//
// Prometheus metrics for requests, backend calls and circuit breakers
// live on a private registry:
//
//	metrics := observability.NewMetrics("gymgw")
//	handler := metrics.Handler()
//
// # Tracing
//
// OpenTelemetry tracing with an optional OTLP gRPC exporter:
//
//	tracer, err := observability.NewTracer(observability.TracerConfig{ServiceName: "gymgw"})
//	defer tracer.Shutdown(ctx)
package observability

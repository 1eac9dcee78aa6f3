// Package middleware provides the HTTP middleware wrapped around the
// gateway pipeline.
//
//   - RequestID: X-Request-ID propagation and generation
//   - AccessLog: one structured log line per request
//   - Recovery: panic recovery with a JSON error body
//
// Middleware functions follow the standard Go pattern and compose
// with Chain:
//
//	handler := middleware.Chain(pipeline,
//	    middleware.Recovery(logger),
//	    middleware.RequestID(),
//	    middleware.AccessLog(logger),
//	)
package middleware

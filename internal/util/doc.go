// Package util provides utility functions and types for the
// gateway.
//
// This package contains shared utilities used across the gateway
// including context helpers, the request error taxonomy and HTTP
// response helpers.
//
// # Context Helpers
//
// Context utilities for request-scoped data:
//
//	ctx = util.ContextWithRoute(ctx, "pagos-service")
//	route := util.RouteFromContext(ctx)
//
// # Error Types
//
// Structured error types mapped onto HTTP status codes:
//
//   - RouteNotFoundError: no route matched (404)
//   - AuthError: missing/invalid credentials (401) or insufficient role (403)
//   - MalformedRequestError: request cannot be processed as sent (400)
//   - BackendError: backend connection failure or timeout (502/503/504)
//   - AggregationError: composite response could not be built (500)
//   - ErrClientCanceled: the client abandoned the request (499)
//
// # HTTP Utilities
//
// Every error response written by the gateway carries a JSON body with
// `estado: "error"`:
//
//	util.WriteError(w, err)
//	util.WriteJSON(w, http.StatusOK, payload)
package util

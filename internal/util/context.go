package util

import (
	"context"
	"sync/atomic"
	"time"
)

// Context keys.
type ctxKey string

const (
	ctxKeyStartTime  ctxKey = "start_time"
	ctxKeyRoute      ctxKey = "route"
	ctxKeyService    ctxKey = "service"
	ctxKeyPathParams ctxKey = "path_params"
	ctxKeyRouteSlot  ctxKey = "route_slot"
)

// ContextWithStartTime adds a start time to the context.
func ContextWithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ctxKeyStartTime, t)
}

// StartTimeFromContext extracts the start time from context.
func StartTimeFromContext(ctx context.Context) time.Time {
	if v, ok := ctx.Value(ctxKeyStartTime).(time.Time); ok {
		return v
	}
	return time.Time{}
}

// RouteSlot receives the matched route name from handlers further down
// the chain, so outer middleware can read it after the request.
type RouteSlot struct {
	name atomic.Value
}

// Name returns the recorded route name, or "" when none was recorded.
func (s *RouteSlot) Name() string {
	if s == nil {
		return ""
	}
	if v, ok := s.name.Load().(string); ok {
		return v
	}
	return ""
}

// ContextWithRouteSlot adds an empty RouteSlot to the context.
func ContextWithRouteSlot(ctx context.Context) (context.Context, *RouteSlot) {
	slot := &RouteSlot{}
	return context.WithValue(ctx, ctxKeyRouteSlot, slot), slot
}

// ContextWithRoute adds a route name to the context and records it in
// the context's RouteSlot, if any.
func ContextWithRoute(ctx context.Context, route string) context.Context {
	if slot, ok := ctx.Value(ctxKeyRouteSlot).(*RouteSlot); ok {
		slot.name.Store(route)
	}
	return context.WithValue(ctx, ctxKeyRoute, route)
}

// RouteFromContext extracts the route name from context.
func RouteFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRoute).(string); ok {
		return v
	}
	return ""
}

// ContextWithService adds a target service name to the context.
func ContextWithService(ctx context.Context, service string) context.Context {
	return context.WithValue(ctx, ctxKeyService, service)
}

// ServiceFromContext extracts the target service name from context.
func ServiceFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyService).(string); ok {
		return v
	}
	return ""
}

// ContextWithPathParams adds path parameters to the context.
func ContextWithPathParams(ctx context.Context, params map[string]string) context.Context {
	return context.WithValue(ctx, ctxKeyPathParams, params)
}

// PathParamsFromContext extracts path parameters from context.
func PathParamsFromContext(ctx context.Context) map[string]string {
	if v, ok := ctx.Value(ctxKeyPathParams).(map[string]string); ok {
		return v
	}
	return nil
}

// ElapsedTime returns the elapsed time since the start time in context.
func ElapsedTime(ctx context.Context) time.Duration {
	startTime := StartTimeFromContext(ctx)
	if startTime.IsZero() {
		return 0
	}
	return time.Since(startTime)
}

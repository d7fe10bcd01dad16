package util

import (
	"context"
	"time"
)

// Context keys.
type ctxKey string

const (
	ctxKeyRequestID  ctxKey = "request_id"
	ctxKeyStartTime  ctxKey = "start_time"
	ctxKeyRoute      ctxKey = "route"
	ctxKeyPathParams ctxKey = "path_params"
)

// ContextWithRequestID adds a request ID to the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// ContextWithStartTime adds a start time to the context.
func ContextWithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ctxKeyStartTime, t)
}

// StartTimeFromContext extracts the start time from context.
func StartTimeFromContext(ctx context.Context) (time.Time, bool) {
	v, ok := ctx.Value(ctxKeyStartTime).(time.Time)
	return v, ok
}

// routeHolder carries the matched route id across handler layers.
// Middleware installs it before routing happens; the forwarder fills
// it in once the route is known, making the id visible to access
// logging and metrics that wrap the pipeline.
type routeHolder struct {
	id string
}

// ContextWithRouteHolder installs an empty route holder.
func ContextWithRouteHolder(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKeyRoute, &routeHolder{})
}

// SetRoute records the matched route id in the context's holder, if
// one is installed.
func SetRoute(ctx context.Context, route string) {
	if h, ok := ctx.Value(ctxKeyRoute).(*routeHolder); ok {
		h.id = route
	}
}

// RouteFromContext extracts the matched route id from context.
func RouteFromContext(ctx context.Context) string {
	if h, ok := ctx.Value(ctxKeyRoute).(*routeHolder); ok {
		return h.id
	}
	return ""
}

// ContextWithPathParams adds captured path parameters to the context.
func ContextWithPathParams(ctx context.Context, params map[string]string) context.Context {
	return context.WithValue(ctx, ctxKeyPathParams, params)
}

// PathParamsFromContext extracts captured path parameters from context.
func PathParamsFromContext(ctx context.Context) map[string]string {
	if v, ok := ctx.Value(ctxKeyPathParams).(map[string]string); ok {
		return v
	}
	return nil
}

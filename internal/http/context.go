package http

import (
	"context"
	"strings"
)

type contextKey string

const (
	eventIDContextKey    contextKey = "event_id"
	resourceIDContextKey contextKey = "resource_id"
)

// ContextWithEventID injects the event identifier resolved from the request path.
func ContextWithEventID(ctx context.Context, eventID string) context.Context {
	return context.WithValue(ctx, eventIDContextKey, eventID)
}

// EventIDFromContext extracts an event identifier previously associated with the context.
func EventIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(eventIDContextKey).(string)
	return id, ok
}

// ContextWithResourceID injects the resource identifier resolved from the request path.
func ContextWithResourceID(ctx context.Context, resourceID string) context.Context {
	return context.WithValue(ctx, resourceIDContextKey, resourceID)
}

// ResourceIDFromContext extracts a resource identifier previously associated with the context.
func ResourceIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(resourceIDContextKey).(string)
	return id, ok
}

// splitIDPath splits "/prefix/{id}/{sub}" into id and sub. sub is empty for
// "/prefix/{id}".
func splitIDPath(path, prefix string) (id, sub string) {
	rest := strings.TrimPrefix(path, prefix)
	id, sub, _ = strings.Cut(rest, "/")
	return id, sub
}

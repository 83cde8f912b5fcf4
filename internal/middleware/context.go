package middleware

import (
	"context"
	"go-pages-app/internal/service"
)

// contextKey defines a custom type for context keys to avoid collisions.
type contextKey string

const callerContextKey = contextKey("caller")

// GetCaller retrieves the caller from the request context.
// An anonymous caller is returned if none is set.
func GetCaller(ctx context.Context) service.Caller {
	if c, ok := ctx.Value(callerContextKey).(service.Caller); ok {
		return c
	}
	return service.Caller{}
}

// SetCaller adds the caller to the request context.
func SetCaller(ctx context.Context, c service.Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, c)
}

package http

import (
	"context"

	"marginalia/app/internal/session"
	"marginalia/app/internal/user"
)

type contextKey string

const (
	requestIDContextKey contextKey = "marginalia/request-id"
	sessionContextKey   contextKey = "marginalia/session"
	userContextKey      contextKey = "marginalia/user"
)

// RequestIDFromContext extracts the request identifier from the context when available.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(requestIDContextKey).(string); ok {
		return value
	}
	return ""
}

// SessionFromContext extracts the live session loaded by the session middleware.
func SessionFromContext(ctx context.Context) *session.Session {
	if ctx == nil {
		return nil
	}
	if value, ok := ctx.Value(sessionContextKey).(*session.Session); ok {
		return value
	}
	return nil
}

// UserFromContext extracts the logged-in user resolved by the session middleware.
func UserFromContext(ctx context.Context) *user.User {
	if ctx == nil {
		return nil
	}
	if value, ok := ctx.Value(userContextKey).(*user.User); ok {
		return value
	}
	return nil
}

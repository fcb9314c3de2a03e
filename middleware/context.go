package middleware

import (
	"context"

	"github.com/complycore/compliance-api/services/audit"
	"github.com/complycore/compliance-api/services/token"
)

// Context key type to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for verified token claims
	ClaimsKey contextKey = "claims"

	// ClientIDKey is the context key for the resolved client identifier
	ClientIDKey contextKey = "client_id"
)

// GetCorrelationIDFromContext retrieves the correlation id from context.
// The key lives with the audit package so services can read it too.
func GetCorrelationIDFromContext(ctx context.Context) string {
	return audit.CorrelationIDFromContext(ctx)
}

// WithCorrelationID adds a correlation id to the context
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return audit.ContextWithCorrelationID(ctx, correlationID)
}

// GetClaimsFromContext retrieves verified token claims from context
func GetClaimsFromContext(ctx context.Context) *token.Claims {
	if val, ok := ctx.Value(ClaimsKey).(*token.Claims); ok {
		return val
	}
	return nil
}

// WithClaims adds verified token claims to the context
func WithClaims(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetClientIDFromContext retrieves the resolved client identifier from context
func GetClientIDFromContext(ctx context.Context) string {
	if val, ok := ctx.Value(ClientIDKey).(string); ok {
		return val
	}
	return ""
}

// WithClientID adds the resolved client identifier to the context
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, ClientIDKey, clientID)
}

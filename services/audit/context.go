package audit

import "context"

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// ContextWithCorrelationID stamps the request correlation id into the context
func ContextWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// CorrelationIDFromContext returns the correlation id, or "" when unset
func CorrelationIDFromContext(ctx context.Context) string {
	if val, ok := ctx.Value(correlationIDKey).(string); ok {
		return val
	}
	return ""
}

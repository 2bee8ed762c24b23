// Package context carries request correlation values between the HTTP layer
// and the loggers.
package context

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	actorRoleKey
	customerKeyKey
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

func WithActorRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, actorRoleKey, role)
}

func ActorRoleFromContext(ctx context.Context) string {
	return stringValue(ctx, actorRoleKey)
}

// WithCustomerKey records the email or anonymous key the customer acts under.
func WithCustomerKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, customerKeyKey, key)
}

func CustomerKeyFromContext(ctx context.Context) string {
	return stringValue(ctx, customerKeyKey)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}

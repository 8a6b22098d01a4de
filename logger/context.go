package logger

import (
	"context"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys for common logging fields. Values stored under these keys are
// extracted automatically and added to log entries.
const (
	// ContextKeyRequestID identifies the individual request.
	ContextKeyRequestID contextKey = "request_id"

	// ContextKeyCorrelationID is used for distributed tracing.
	ContextKeyCorrelationID contextKey = "correlation_id"

	// ContextKeyObjectTag identifies the business object being transitioned.
	ContextKeyObjectTag contextKey = "object_tag"

	// ContextKeyDefTag identifies the definition governing the object.
	ContextKeyDefTag contextKey = "def_tag"

	// ContextKeyEnvironment identifies the deployment environment.
	ContextKeyEnvironment contextKey = "environment"
)

// allContextKeys lists all context keys that should be extracted for logging.
var allContextKeys = []contextKey{
	ContextKeyRequestID,
	ContextKeyCorrelationID,
	ContextKeyObjectTag,
	ContextKeyDefTag,
	ContextKeyEnvironment,
}

// WithRequestID returns a new context with the request ID set.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// WithCorrelationID returns a new context with the correlation ID set.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, ContextKeyCorrelationID, correlationID)
}

// WithObjectTag returns a new context with the object tag set.
func WithObjectTag(ctx context.Context, objectTag string) context.Context {
	return context.WithValue(ctx, ContextKeyObjectTag, objectTag)
}

// WithDefTag returns a new context with the definition tag set.
func WithDefTag(ctx context.Context, defTag string) context.Context {
	return context.WithValue(ctx, ContextKeyDefTag, defTag)
}

// WithEnvironment returns a new context with the environment set.
func WithEnvironment(ctx context.Context, environment string) context.Context {
	return context.WithValue(ctx, ContextKeyEnvironment, environment)
}

package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID  contextKey = "request_id"
	ContextKeyAdminEmail contextKey = "admin_email"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithAdminEmail records the authenticated admin on the context.
func WithAdminEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ContextKeyAdminEmail, email)
}

// AdminEmailFromContext returns the authenticated admin, if any.
func AdminEmailFromContext(ctx context.Context) string {
	if email, ok := ctx.Value(ContextKeyAdminEmail).(string); ok {
		return email
	}
	return ""
}

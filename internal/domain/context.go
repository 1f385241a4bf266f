// Package domain holds the core invoicing types, the ledger store boundary,
// application errors and request-scoped context helpers.
//
// Context helpers centralize request-scoped data access so that every
// state-changing operation resolves the acting user the same way.
package domain

import (
	"context"

	"github.com/google/uuid"
)

type contextKey int

const (
	userIDContextKey contextKey = iota
	requestIDContextKey
)

// NewContextWithUserID returns a context carrying the authenticated user id.
func NewContextWithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext returns the authenticated user id, or uuid.Nil.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(userIDContextKey).(uuid.UUID)
	return id
}

// RequireUserID returns the authenticated user id or ErrUnauthenticated.
func RequireUserID(ctx context.Context) (uuid.UUID, error) {
	id := UserIDFromContext(ctx)
	if id == uuid.Nil {
		return uuid.Nil, ErrUnauthenticated
	}
	return id, nil
}

// NewContextWithRequestID returns a context carrying the request id.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}

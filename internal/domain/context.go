// Package domain provides core business types, the error taxonomy, and
// context helpers for the storefront.
//
// Identity is never read from ambient state by services. Handlers resolve it
// from the request context once and pass it explicitly into every call.
package domain

import (
	"context"
	"strings"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	// identityContextKey stores the authenticated shopper identity.
	identityContextKey contextKey = iota

	// requestIDContextKey stores the request ID for tracing.
	requestIDContextKey
)

// Identity is the stable identity of the shopper making a request.
// Email is the key that owns cart lines and settlement records.
type Identity struct {
	Subject string
	Email   string
}

// IsZero reports whether no identity is present.
func (i Identity) IsZero() bool {
	return i.Email == ""
}

// Matches reports whether user names this identity. Emails compare
// case-insensitively.
func (i Identity) Matches(user string) bool {
	return strings.EqualFold(strings.TrimSpace(user), i.Email)
}

// --- Identity Context Helpers ---

// NewContextWithIdentity returns a new context with the identity attached.
func NewContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext retrieves the identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	if !ok || id.IsZero() {
		return Identity{}, false
	}
	return id, true
}

// RequireIdentity retrieves the identity from context or returns
// ErrUnauthenticated.
func RequireIdentity(ctx context.Context) (Identity, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return Identity{}, ErrUnauthenticated
	}
	return id, nil
}

// --- Request ID Context Helpers ---

// NewContextWithRequestID returns a new context with the request ID attached.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if no request ID is present.
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}

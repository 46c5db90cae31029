package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAPIKey is returned when the Stripe API key is invalid or missing.
	ErrInvalidAPIKey = errors.New("billing: invalid or missing API key")

	// ErrSessionNotFound is returned when the gateway has no such session.
	ErrSessionNotFound = errors.New("billing: checkout session not found")

	// ErrInvalidWebhookSignature is returned when webhook signature verification fails.
	ErrInvalidWebhookSignature = errors.New("billing: invalid webhook signature")

	// ErrNoLineItems is returned when a session is requested with nothing to charge.
	ErrNoLineItems = errors.New("billing: at least one line item is required")
)

// StripeError wraps a Stripe API error with additional context.
type StripeError struct {
	Message        string // Human-readable error message
	Type           string // Stripe error type (e.g., "api_error")
	Code           string // Stripe error code (e.g., "resource_missing")
	HTTPStatusCode int    // HTTP status code from Stripe
	RequestID      string // Stripe request ID for debugging
	OriginalError  error  // Original error from Stripe SDK
}

func (e *StripeError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe: %s (code: %s)", e.Message, e.Code)
	}
	return fmt.Sprintf("stripe: %s", e.Message)
}

func (e *StripeError) Unwrap() error {
	return e.OriginalError
}

// IsTemporary returns true if the error is likely transient and retryable.
// These count against the circuit breaker and surface as gateway unavailable.
func (e *StripeError) IsTemporary() bool {
	if e.HTTPStatusCode == 429 || e.HTTPStatusCode >= 500 {
		return true
	}
	return e.Code == "rate_limit" || e.Type == "api_error" || e.Type == "api_connection_error"
}

// IsNotFound returns true if Stripe reported the resource as missing.
func (e *StripeError) IsNotFound() bool {
	return e.Code == "resource_missing" || e.HTTPStatusCode == 404
}

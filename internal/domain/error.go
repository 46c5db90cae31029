package domain

import (
	"errors"
	"fmt"
)

// Application error codes.
// These map to HTTP status codes and determine user-facing messages.
const (
	EINVALID      = "invalid"              // 400 - Validation error (bad input)
	EEMPTYCART    = "empty_cart"           // 400 - Checkout attempted with no lines
	EUNAUTHORIZED = "unauthorized"         // 401 - Authentication required
	EPAYMENT      = "payment_required"     // 402 - Payment not confirmed by the gateway
	EFORBIDDEN    = "forbidden"            // 403 - Authenticated but not permitted
	ENOTFOUND     = "not_found"            // 404 - Resource not found
	ECONFLICT     = "conflict"             // 409 - Resource conflict
	ETOOLARGE     = "too_large"            // 413 - Request body over the limit
	ERATELIMIT    = "rate_limit"           // 429 - Too many requests
	EINTERNAL     = "internal"             // 500 - Internal server error (hide details)
	EPARTIAL      = "partial_batch_failure" // 500 - Inventory batch rolled back
	EUNAVAILABLE  = "gateway_unavailable"  // 503 - Payment gateway timed out or failed
)

const internalMessage = "An internal error occurred. Please try again later."

// Error represents an application error with a code and message.
// It implements the error interface and supports error wrapping.
type Error struct {
	// Code is a machine-readable error code (e.g., EINVALID, ENOTFOUND).
	Code string

	// Message is a human-readable error message safe to show to users.
	Message string

	// Op is the operation where the error occurred (e.g., "cart.add").
	// Used for debugging and logging, not shown to users.
	Op string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel *Error with the same code.
// This lets errors.Is(err, ErrEmptyCart) match a wrapped copy carrying an Op.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil {
		return false
	}
	return e.Code == t.Code && (t.Message == "" || e.Message == t.Message)
}

// ErrorCode extracts the error code from an error.
// Returns EINTERNAL for non-domain errors and "" for nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var pbf *PartialBatchFailure
	if errors.As(err, &pbf) {
		return EPARTIAL
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return EINVALID
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return EINTERNAL
}

// ErrorMessage extracts a user-facing message from an error.
// Internal errors return a generic message to avoid leaking details.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var pbf *PartialBatchFailure
	if errors.As(err, &pbf) {
		return pbf.Error()
	}

	var e *Error
	if errors.As(err, &e) {
		if e.Code == EINTERNAL {
			return internalMessage
		}
		return e.Message
	}

	return internalMessage
}

// ErrorOp extracts the operation from an error (for logging).
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}

	return ""
}

// Errorf creates a new domain error with formatted message.
// Example: domain.Errorf(domain.EINVALID, "cart.add", "quantity must be at least 1, got %d", qty)
func Errorf(code, op, format string, args ...any) error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps an existing error with a domain error code and operation.
// Returns nil if err is nil.
func WrapError(err error, code, op, message string) error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// IsCode returns true if err has the given error code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// =============================================================================
// Checkout and settlement errors
// =============================================================================

var (
	// ErrEmptyCart is returned when checkout is attempted with no cart lines.
	ErrEmptyCart = &Error{Code: EEMPTYCART, Message: "Cart is empty"}

	// ErrPaymentNotConfirmed is returned when settlement runs before the
	// gateway reports the session as paid.
	ErrPaymentNotConfirmed = &Error{Code: EPAYMENT, Message: "Payment has not been confirmed"}

	// ErrGatewayUnavailable is returned when the payment gateway times out,
	// errors, or its circuit breaker is open. Clients may retry.
	ErrGatewayUnavailable = &Error{Code: EUNAVAILABLE, Message: "Payment gateway unavailable, please retry"}

	// ErrUnauthenticated is returned when no identity is attached to the request.
	ErrUnauthenticated = &Error{Code: EUNAUTHORIZED, Message: "Authentication required"}
)

// PartialBatchFailure reports that an inventory batch was rolled back because
// one of its lines could not be applied. No counter in the batch changed.
type PartialBatchFailure struct {
	// ProductID is the first product that could not be updated.
	ProductID string

	// Index is the position of that line within the batch.
	Index int

	// Err is the cause for that line (usually a NotFound).
	Err error
}

func (e *PartialBatchFailure) Error() string {
	return fmt.Sprintf("inventory batch rolled back: product %s (line %d) could not be updated", e.ProductID, e.Index)
}

func (e *PartialBatchFailure) Unwrap() error {
	return e.Err
}

// =============================================================================
// Validation Errors (field-level errors for request bodies)
// =============================================================================

// ValidationError represents one or more field validation failures.
type ValidationError struct {
	// Fields maps field names to error messages.
	Fields map[string]string

	// Op is the operation where validation failed.
	Op string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		for field, msg := range e.Fields {
			if e.Op != "" {
				return fmt.Sprintf("%s: %s: %s", e.Op, field, msg)
			}
			return fmt.Sprintf("%s: %s", field, msg)
		}
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: validation failed for %d fields", e.Op, len(e.Fields))
	}
	return fmt.Sprintf("validation failed for %d fields", len(e.Fields))
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(op, field, message string) error {
	return &ValidationError{
		Op:     op,
		Fields: map[string]string{field: message},
	}
}

// AddFieldError adds a field error to an existing ValidationError.
// If err is nil or not a ValidationError, a new one is created.
func AddFieldError(err error, field, message string) error {
	var ve *ValidationError
	if err != nil && errors.As(err, &ve) {
		ve.Fields[field] = message
		return ve
	}

	return &ValidationError{
		Fields: map[string]string{field: message},
	}
}

// IsValidationError returns true if err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// GetValidationFields extracts field errors from a ValidationError.
func GetValidationFields(err error) map[string]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}

// =============================================================================
// Common errors (convenience)
// =============================================================================

// NotFound creates a not found error for a resource.
// Example: domain.NotFound("cart.update", "cart line", lineID.String())
func NotFound(op, resource, identifier string) error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s not found: %s", resource, identifier),
	}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(op, message string) error {
	return &Error{
		Code:    EUNAUTHORIZED,
		Op:      op,
		Message: message,
	}
}

// Forbidden creates a forbidden error.
func Forbidden(op, message string) error {
	return &Error{
		Code:    EFORBIDDEN,
		Op:      op,
		Message: message,
	}
}

// Invalid creates a validation error for a single issue.
func Invalid(op, message string) error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Conflict creates a conflict error.
func Conflict(op, message string) error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error (wraps underlying error).
// The message shown to users will be generic; the underlying error is for logging.
func Internal(err error, op, message string) error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Unavailable wraps a gateway failure so it surfaces as ErrGatewayUnavailable.
func Unavailable(err error, op string) error {
	return &Error{
		Code:    EUNAVAILABLE,
		Op:      op,
		Message: ErrGatewayUnavailable.Message,
		Err:     err,
	}
}

// Package billing talks to the payment gateway that hosts checkout pages.
package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Provider defines the contract with the payment gateway.
// Implementations can use Stripe or a test double.
type Provider interface {
	// CreateCheckoutSession creates a hosted payment page for the given
	// server-priced line items and returns its redirect URL.
	CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error)

	// GetCheckoutSession fetches the gateway's current view of a session.
	// Settlement relies on this, never on the browser reaching a return URL.
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)

	// ConstructWebhookEvent verifies the signature of a webhook payload and
	// decodes it.
	ConstructWebhookEvent(payload []byte, signature string) (*WebhookEvent, error)
}

// LineItem is one priced line sent to the gateway.
type LineItem struct {
	Name string

	// UnitAmount is in the currency's minor unit (cents for USD).
	UnitAmount int64
	Quantity   int64
	ImageURL   string
}

// CreateCheckoutSessionParams contains parameters for creating a hosted session.
type CreateCheckoutSessionParams struct {
	LineItems []LineItem

	// Currency code (ISO 4217), e.g. "usd".
	Currency string

	// CustomerEmail prefills the payment page.
	CustomerEmail string

	// ClientReferenceID ties the session back to the shopper.
	ClientReferenceID string

	// SuccessURL and CancelURL are where the gateway sends the browser.
	// The gateway substitutes {CHECKOUT_SESSION_ID} in SuccessURL.
	SuccessURL string
	CancelURL  string

	Metadata map[string]string

	// IdempotencyKey makes a retried create return the same session.
	IdempotencyKey string
}

// Session status values reported by the gateway.
const (
	SessionStatusOpen     = "open"
	SessionStatusComplete = "complete"
	SessionStatusExpired  = "expired"

	PaymentStatusPaid              = "paid"
	PaymentStatusUnpaid            = "unpaid"
	PaymentStatusNoPaymentRequired = "no_payment_required"
)

// CheckoutSession is the gateway's view of a hosted session.
type CheckoutSession struct {
	ID                string
	URL               string
	Status            string
	PaymentStatus     string
	CustomerEmail     string
	ClientReferenceID string
	AmountTotal       int64
	Currency          string
	Metadata          map[string]string
	ExpiresAt         time.Time
}

// IsPaid reports whether the gateway confirms the payment completed.
func (s *CheckoutSession) IsPaid() bool {
	if s == nil || s.Status != SessionStatusComplete {
		return false
	}
	return s.PaymentStatus == PaymentStatusPaid || s.PaymentStatus == PaymentStatusNoPaymentRequired
}

// IsFailed reports whether the session can never be paid.
func (s *CheckoutSession) IsFailed() bool {
	return s != nil && s.Status == SessionStatusExpired
}

// Webhook event types handled by the storefront.
const (
	EventCheckoutCompleted          = "checkout.session.completed"
	EventCheckoutAsyncPaymentOK     = "checkout.session.async_payment_succeeded"
	EventCheckoutAsyncPaymentFailed = "checkout.session.async_payment_failed"
	EventCheckoutExpired            = "checkout.session.expired"
)

// WebhookEvent is a verified gateway event. Session is set for
// checkout.session.* events.
type WebhookEvent struct {
	ID      string
	Type    string
	Session *CheckoutSession
}

// ToMinorUnits converts a decimal amount to the currency's minor unit,
// rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutStatus is the state of one checkout attempt.
//
//	INITIATED -> SESSION_CREATED -> PAYMENT_CONFIRMED -> SETTLED
//	                             \-> PAYMENT_FAILED
type CheckoutStatus string

const (
	CheckoutInitiated        CheckoutStatus = "INITIATED"
	CheckoutSessionCreated   CheckoutStatus = "SESSION_CREATED"
	CheckoutPaymentConfirmed CheckoutStatus = "PAYMENT_CONFIRMED"
	CheckoutSettled          CheckoutStatus = "SETTLED"
	CheckoutPaymentFailed    CheckoutStatus = "PAYMENT_FAILED"
)

var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutInitiated:        {CheckoutSessionCreated},
	CheckoutSessionCreated:   {CheckoutPaymentConfirmed, CheckoutPaymentFailed},
	CheckoutPaymentConfirmed: {CheckoutSettled},
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s CheckoutStatus) CanTransitionTo(next CheckoutStatus) bool {
	for _, allowed := range checkoutTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition exists.
func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutSettled || s == CheckoutPaymentFailed
}

// SettlementStatus is the persisted status of an OrderSettlementRecord.
type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "pending"
	SettlementConfirmed SettlementStatus = "confirmed"
	SettlementFailed    SettlementStatus = "failed"
)

// CheckoutStatus maps the persisted status onto the checkout state machine.
func (s SettlementStatus) CheckoutStatus() CheckoutStatus {
	switch s {
	case SettlementConfirmed:
		return CheckoutSettled
	case SettlementFailed:
		return CheckoutPaymentFailed
	default:
		return CheckoutSessionCreated
	}
}

// CanTransitionTo reports whether a record in status s may move its
// checkout to next.
func (s SettlementStatus) CanTransitionTo(next CheckoutStatus) bool {
	return s.CheckoutStatus().CanTransitionTo(next)
}

// SettlementLine is a line as charged: price is the price at purchase.
type SettlementLine struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int32           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

func (l SettlementLine) MarshalJSON() ([]byte, error) {
	type alias SettlementLine
	return json.Marshal(struct {
		alias
		UnitPrice string `json:"unitPrice"`
	}{alias(l), Money(l.UnitPrice)})
}

// SettlementRecord is the local trace of a checkout attempt. One record
// exists per gateway session; it makes settlement idempotent.
type SettlementRecord struct {
	ID         uuid.UUID        `json:"id"`
	UserEmail  string           `json:"user"`
	SessionRef string           `json:"sessionRef"`
	Status     SettlementStatus `json:"status"`
	Lines      []SettlementLine `json:"lines"`
	Subtotal   decimal.Decimal  `json:"subtotal"`
	Currency   string           `json:"currency"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
	SettledAt  *time.Time       `json:"settledAt,omitempty"`
}

func (r SettlementRecord) MarshalJSON() ([]byte, error) {
	type alias SettlementRecord
	return json.Marshal(struct {
		alias
		Subtotal string `json:"subtotal"`
	}{alias(r), Money(r.Subtotal)})
}

// SettleOutcome is the successful result of SettleOrder.
type SettleOutcome string

const (
	SettleConfirmed      SettleOutcome = "confirmed"
	SettleAlreadySettled SettleOutcome = "already-settled"
)

// CheckoutSession is returned by InitiateCheckout.
type CheckoutSession struct {
	SessionRef  string `json:"sessionRef"`
	RedirectURL string `json:"redirectUrl"`

	// Warnings lists lines dropped because their product left the catalog.
	Warnings []string `json:"warnings,omitempty"`
}

// CheckoutService turns a priced cart into a hosted payment session and
// settles the order once the gateway confirms payment.
type CheckoutService interface {
	// InitiateCheckout re-prices the cart from the catalog and creates a
	// hosted session. It never mutates cart or catalog state.
	InitiateCheckout(ctx context.Context, user Identity) (*CheckoutSession, error)

	// SettleOrder verifies payment with the gateway and applies inventory
	// and cart-clearing side effects exactly once per session.
	SettleOrder(ctx context.Context, user Identity, sessionRef string) (SettleOutcome, error)

	// MarkFailed records that the gateway reported the session as failed or
	// expired. A confirmed record is left untouched.
	MarkFailed(ctx context.Context, sessionRef string) error

	// GetSettlement returns the record for sessionRef if user owns it.
	GetSettlement(ctx context.Context, user Identity, sessionRef string) (*SettlementRecord, error)
}

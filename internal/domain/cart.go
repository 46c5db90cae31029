package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CART DOMAIN ERRORS
// =============================================================================

// MaxLineQuantity caps one cart line so totals and units-sold counters
// stay well inside their column ranges.
const MaxLineQuantity = 999

var (
	ErrCartLineNotFound = &Error{Code: ENOTFOUND, Message: "Cart line not found"}
	ErrInvalidQuantity  = &Error{Code: EINVALID, Message: fmt.Sprintf("Quantity must be between 1 and %d", MaxLineQuantity)}
)

// ValidQuantity reports whether q may be stored on a cart line.
func ValidQuantity(q int32) bool {
	return q >= 1 && q <= MaxLineQuantity
}

// CartService provides business logic for shopping cart operations.
// Every call is scoped to the identity passed in.
type CartService interface {
	// AddOrIncrement puts product into the cart with the given quantity.
	// An existing line for the same product has its quantity replaced.
	AddOrIncrement(ctx context.Context, user Identity, productID uuid.UUID, quantity int32) (*CartLine, error)

	// GetCart returns the priced snapshot. An empty cart is not an error.
	GetCart(ctx context.Context, user Identity) (*CartSnapshot, error)

	// UpdateQuantity sets a line's quantity. Quantity below 1 is rejected;
	// use RemoveLine to delete.
	UpdateQuantity(ctx context.Context, user Identity, lineID uuid.UUID, quantity int32) (*CartLine, error)

	// RemoveLine deletes one line owned by user.
	RemoveLine(ctx context.Context, user Identity, lineID uuid.UUID) error

	// ClearCart deletes all of user's lines. Idempotent.
	ClearCart(ctx context.Context, user Identity) error
}

// CartLine is a persisted (user, product) pair. Quantity is always >= 1.
type CartLine struct {
	ID        uuid.UUID `json:"id"`
	UserEmail string    `json:"user"`
	ProductID uuid.UUID `json:"productId"`
	Quantity  int32     `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CartItem is a cart line joined with its product at read time.
type CartItem struct {
	LineID    uuid.UUID       `json:"lineId"`
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Picture   string          `json:"picture,omitempty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int32           `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// MarshalJSON writes money with two decimal places.
func (i CartItem) MarshalJSON() ([]byte, error) {
	type alias CartItem
	return json.Marshal(struct {
		alias
		UnitPrice string `json:"unitPrice"`
		Subtotal  string `json:"subtotal"`
	}{alias(i), Money(i.UnitPrice), Money(i.Subtotal)})
}

// DroppedLine is a cart line whose product left the catalog. It is kept
// out of totals but stays in the cart until the shopper removes it.
type DroppedLine struct {
	LineID    uuid.UUID `json:"lineId"`
	ProductID uuid.UUID `json:"productId"`
	Quantity  int32     `json:"quantity"`
	Warning   string    `json:"warning"`
}

// NewDroppedLine builds the warning shown for an unavailable product.
func NewDroppedLine(lineID, productID uuid.UUID, quantity int32) DroppedLine {
	return DroppedLine{
		LineID:    lineID,
		ProductID: productID,
		Quantity:  quantity,
		Warning:   fmt.Sprintf("product %s is no longer available", productID),
	}
}

// CartSnapshot is derived on every read and never cached.
type CartSnapshot struct {
	Items      []CartItem      `json:"items"`
	Dropped    []DroppedLine   `json:"dropped,omitempty"`
	TotalItems int64           `json:"totalItems"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// MarshalJSON writes the subtotal with two decimal places.
func (s CartSnapshot) MarshalJSON() ([]byte, error) {
	type alias CartSnapshot
	return json.Marshal(struct {
		alias
		Subtotal string `json:"subtotal"`
	}{alias(s), Money(s.Subtotal)})
}

// NewCartSnapshot computes line subtotals and totals for items. Dropped
// lines are carried along for display and do not count toward totals.
func NewCartSnapshot(items []CartItem, dropped []DroppedLine) *CartSnapshot {
	snap := &CartSnapshot{Items: make([]CartItem, 0, len(items)), Dropped: dropped, Subtotal: decimal.Zero}
	for _, item := range items {
		item.Subtotal = item.UnitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		snap.TotalItems += int64(item.Quantity)
		snap.Subtotal = snap.Subtotal.Add(item.Subtotal)
		snap.Items = append(snap.Items, item)
	}
	return snap
}

// IsEmpty reports whether the snapshot has no priced lines.
func (s *CartSnapshot) IsEmpty() bool {
	return s == nil || len(s.Items) == 0
}

// Money formats an amount the way it is shown and charged.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

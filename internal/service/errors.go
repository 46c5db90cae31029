package service

import (
	"errors"

	"github.com/dukerupert/storefront/internal/domain"
)

// Settlement errors
var (
	ErrSessionRefRequired = domain.Errorf(domain.EINVALID, "", "Checkout session reference is required")
	ErrNotSessionOwner    = domain.Errorf(domain.EFORBIDDEN, "", "Checkout session belongs to another user")
)

// withOp returns a copy of a sentinel carrying op, so errors.Is still
// matches the sentinel while logs show where it was raised.
func withOp(sentinel error, op string) error {
	var e *domain.Error
	if !errors.As(sentinel, &e) {
		return sentinel
	}
	c := *e
	c.Op = op
	return &c
}

// gatewayError passes through errors the billing guard already mapped and
// treats anything else as the gateway being unavailable.
func gatewayError(err error, op string) error {
	var e *domain.Error
	if errors.As(err, &e) {
		return err
	}
	return domain.Unavailable(err, op)
}

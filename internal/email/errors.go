package email

import "errors"

var (
	// ErrInvalidFromAddress is returned when the sender address cannot be parsed.
	ErrInvalidFromAddress = errors.New("email: invalid from address")

	// ErrInvalidToAddress is returned when a recipient address cannot be parsed.
	ErrInvalidToAddress = errors.New("email: invalid to address")

	// ErrNoRecipients is returned when a message has no recipients.
	ErrNoRecipients = errors.New("email: no recipients")
)

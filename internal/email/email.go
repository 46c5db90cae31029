// Package email composes and delivers transactional mail.
package email

import "context"

// Email is a message ready to be sent.
type Email struct {
	To       []string
	From     string
	Subject  string
	TextBody string
	HTMLBody string // optional
	Headers  map[string]string
}

// Sender delivers messages. SMTPSender is the production implementation.
type Sender interface {
	// Send delivers the message and returns a provider message id when one exists.
	Send(ctx context.Context, email *Email) (string, error)
}

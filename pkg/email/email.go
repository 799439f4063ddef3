// Package email sends transactional mail for broadcasts.
package email

import (
	"context"
	"errors"
	"net/mail"
)

// ErrNoRecipient is returned when a message has no usable address.
var ErrNoRecipient = errors.New("email: recipient address required")

// Message is one rendered email for one recipient.
type Message struct {
	To      mail.Address
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a single message. Implementations must be safe for
// concurrent use; broadcasts call Send from many goroutines.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

func validate(msg Message) error {
	if msg.To.Address == "" {
		return ErrNoRecipient
	}
	if _, err := mail.ParseAddress(msg.To.Address); err != nil {
		return err
	}
	return nil
}

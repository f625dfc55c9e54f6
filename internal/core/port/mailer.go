package port

import "context"

// Email is the message shape handed to the mail notifier.
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
}

// Mailer delivers transactional email. Delivery failure is surfaced to the
// caller, which translates it into an internal error response.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

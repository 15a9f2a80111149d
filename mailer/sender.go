// Package mailer implements outbound email delivery for scheduled jobs:
// SMTP transport, per-cycle bounded retries, recipient parsing, and
// operator failure alerts.
package mailer

import "context"

// Sender sends a single email. Implementations own transport concerns
// (connection, auth, rate limiting); callers own retry policy.
type Sender interface {
	Send(ctx context.Context, from string, to []string, subject, body string) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, from string, to []string, subject, body string) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, from string, to []string, subject, body string) error {
	return f(ctx, from, to, subject, body)
}

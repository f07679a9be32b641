// Package mail delivers the rendered report. Two transports exist: a
// transactional-email HTTP API and direct SMTP over TLS; config selects one.
package mail

import "context"

// Sender delivers an HTML body to a list of recipients.
type Sender interface {
	Send(ctx context.Context, recipients []string, subject, htmlBody string) error
}

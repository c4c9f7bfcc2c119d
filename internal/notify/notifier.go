package notify

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by a notifier that has no relay credentials.
var ErrNotConfigured = errors.New("notifier not configured")

// Message is one outbound email.
type Message struct {
	Subject string
	// Text is the plain-text body. HTML, when set, is sent as an alternative.
	Text    string
	HTML    string
	To      []string
	ReplyTo string
}

// Notifier delivers messages. Send may block on network I/O and must
// respect ctx cancellation.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
	Ready() bool
}

type disabled struct{}

// Disabled returns a notifier that fails every send with ErrNotConfigured.
func Disabled() Notifier {
	return disabled{}
}

func (disabled) Send(context.Context, Message) error { return ErrNotConfigured }

func (disabled) Ready() bool { return false }

// Package notifytest provides in-memory notifiers for tests.
package notifytest

import (
	"context"
	"sync"

	"github.com/spec-kit/intake-desk/internal/notify"
)

// Recorder captures every message it is asked to send. When Fail returns
// a non-nil error for a message, the send fails and the message is still
// recorded as attempted.
type Recorder struct {
	mu       sync.Mutex
	attempts []notify.Message
	sent     []notify.Message
	Fail     func(notify.Message) error
}

// Send implements notify.Notifier.
func (r *Recorder) Send(ctx context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, msg)
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Fail != nil {
		if err := r.Fail(msg); err != nil {
			return err
		}
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Ready implements notify.Notifier.
func (r *Recorder) Ready() bool { return true }

// Attempts returns every message passed to Send.
func (r *Recorder) Attempts() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.attempts...)
}

// Sent returns the messages that were delivered.
func (r *Recorder) Sent() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.sent...)
}

// FailAll returns a Fail func that rejects every message with err.
func FailAll(err error) func(notify.Message) error {
	return func(notify.Message) error { return err }
}

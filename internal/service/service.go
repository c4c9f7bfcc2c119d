package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/intake-desk/internal/events"
	"github.com/spec-kit/intake-desk/internal/notify"
)

// IdentityProvider names the user performing a mutation.
type IdentityProvider interface {
	CurrentActor(ctx context.Context) string
}

const defaultSendTimeout = 15 * time.Second

// sendBounded delivers msg with a deadline so callers holding the
// overlay lock never wait on the relay indefinitely.
func sendBounded(ctx context.Context, n notify.Notifier, timeout time.Duration, msg notify.Message) error {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return n.Send(sendCtx, msg)
}

func publish(ctx context.Context, d events.Dispatcher, logger *zap.Logger, event events.Event) {
	if d == nil {
		return
	}
	if err := d.Publish(ctx, event); err != nil {
		logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/intake-desk/internal/domain"
	"github.com/spec-kit/intake-desk/internal/events"
	"github.com/spec-kit/intake-desk/internal/notify"
	"github.com/spec-kit/intake-desk/internal/observability"
)

// NotificationService sends the emails that follow a new submission.
type NotificationService struct {
	dispatcher  events.Dispatcher
	notifier    notify.Notifier
	composer    *notify.Composer
	recipients  []string
	sendTimeout time.Duration
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Dispatcher  events.Dispatcher
	Notifier    notify.Notifier
	Composer    *notify.Composer
	Recipients  []string
	SendTimeout time.Duration
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		dispatcher:  deps.Dispatcher,
		notifier:    deps.Notifier,
		composer:    deps.Composer,
		recipients:  deps.Recipients,
		sendTimeout: deps.SendTimeout,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSubmissionReceived, n.handleSubmissionReceived)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.logEvent)
	n.dispatcher.Subscribe(events.EventTicketOverdueAlerted, n.logEvent)
}

// handleSubmissionReceived notifies staff and acknowledges the client.
// Each send is independent; failures are logged and returned joined for
// the dispatcher to record.
func (n *NotificationService) handleSubmissionReceived(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SubmissionReceivedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	sub := payload.Submission

	var errs []error
	if len(n.recipients) > 0 {
		if err := n.send(ctx, sub.Ticket, "admin", n.composer.AdminSubmission(sub, n.recipients)); err != nil {
			errs = append(errs, err)
		}
	}
	if email := sub.ContactEmail(); domain.ValidEmail(email) {
		if err := n.send(ctx, sub.Ticket, "client_ack", n.composer.ClientAck(sub)); err != nil {
			errs = append(errs, err)
		}
	} else {
		n.metrics.Inc(observability.MetricInvalidClientEmail)
		n.logger.Warn("client email missing or invalid; acknowledgement skipped",
			zap.String("ticket", sub.Ticket), zap.String("email", email))
	}
	return errors.Join(errs...)
}

func (n *NotificationService) send(ctx context.Context, ticket, kind string, msg notify.Message) error {
	if err := sendBounded(ctx, n.notifier, n.sendTimeout, msg); err != nil {
		n.metrics.Inc(observability.MetricNotifyFailed)
		return fmt.Errorf("%s email for %s: %w", kind, ticket, err)
	}
	n.metrics.Inc(observability.MetricNotifySent)
	n.logger.Debug("email sent", zap.String("ticket", ticket), zap.String("kind", kind))
	return nil
}

func (n *NotificationService) logEvent(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("ticket", event.Ticket),
		zap.String("actor", event.Actor),
		zap.Any("payload", event.Payload))
	return nil
}

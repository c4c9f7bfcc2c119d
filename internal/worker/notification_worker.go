package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/intake-desk/internal/events"
	"github.com/spec-kit/intake-desk/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartEventBridge forwards every desk event to NATS. A nil publisher
// leaves the bridge off.
func StartEventBridge(dispatcher events.Dispatcher, publisher *events.NATSPublisher, logger *zap.Logger) {
	if dispatcher == nil || publisher == nil {
		return
	}
	for _, t := range events.AllEventTypes {
		dispatcher.Subscribe(t, publisher.Forward)
	}
	logger.Info("event bridge started", zap.String("subject", publisher.Subject("*")))
}

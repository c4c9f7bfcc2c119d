package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/intake-desk/internal/clock"
	"github.com/spec-kit/intake-desk/internal/domain"
	"github.com/spec-kit/intake-desk/internal/events"
	"github.com/spec-kit/intake-desk/internal/notify"
	"github.com/spec-kit/intake-desk/internal/observability"
	"github.com/spec-kit/intake-desk/internal/repository"
	apperrors "github.com/spec-kit/intake-desk/pkg/util/errorutil"
)

// AlertService sends the one-time overdue alert for each ticket.
type AlertService struct {
	overlays       *repository.OverlayGuard
	notifier       notify.Notifier
	composer       *notify.Composer
	clock          clock.Clock
	dispatcher     events.Dispatcher
	logger         *zap.Logger
	metrics        *observability.Metrics
	recipient      string
	thresholdHours float64
	sendTimeout    time.Duration
}

// AlertDependencies bundles collaborators for the alert service.
type AlertDependencies struct {
	Overlays       *repository.OverlayGuard
	Notifier       notify.Notifier
	Composer       *notify.Composer
	Clock          clock.Clock
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	Recipient      string
	ThresholdHours float64
	SendTimeout    time.Duration
}

// NewAlertService constructs the service.
func NewAlertService(deps AlertDependencies) *AlertService {
	threshold := deps.ThresholdHours
	if threshold <= 0 {
		threshold = domain.DefaultOverdueThresholdHours
	}
	return &AlertService{
		overlays:       deps.Overlays,
		notifier:       deps.Notifier,
		composer:       deps.Composer,
		clock:          deps.Clock,
		dispatcher:     deps.Dispatcher,
		logger:         deps.Logger,
		metrics:        deps.Metrics,
		recipient:      deps.Recipient,
		thresholdHours: threshold,
		sendTimeout:    deps.SendTimeout,
	}
}

// ScanAndAlert attempts one alert for every overdue view whose ticket has
// not been alerted yet and returns how many were delivered. The alerted
// flag is set and persisted whether or not delivery succeeded, so a ticket
// is attempted at most once. Views are updated in place to reflect the
// flag.
//
// Without a valid recipient the pass does nothing, leaving every ticket
// eligible for a later pass once the address is fixed.
func (s *AlertService) ScanAndAlert(ctx context.Context, views []domain.View) (int, error) {
	if !domain.ValidEmail(s.recipient) {
		s.metrics.Inc(observability.MetricAlertFailed)
		s.logger.Warn("overdue alert recipient missing or invalid; scan skipped", zap.String("to", s.recipient))
		return 0, nil
	}
	sent := 0
	var errs []error
	for i := range views {
		v := &views[i]
		if v.Ticket == "" || !v.Overdue || v.OverdueAlerted {
			continue
		}
		out, err := s.alertOne(ctx, *v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ticket %s: %w", v.Ticket, err))
			continue
		}
		if out.alerted {
			v.OverdueAlerted = true
			v.OverdueAlertedTS = out.alertedTS
		}
		if out.delivered {
			sent++
		}
	}
	if len(errs) > 0 {
		return sent, apperrors.NewPersistenceFailure("persist overdue alert", errors.Join(errs...))
	}
	return sent, nil
}

type alertOutcome struct {
	delivered bool
	alerted   bool
	alertedTS string
}

// alertOne runs the send and flag update for one ticket inside the overlay
// critical section. The overlay is re-read under the lock: a ticket alerted
// or resolved since the views were built is left alone.
func (s *AlertService) alertOne(ctx context.Context, v domain.View) (alertOutcome, error) {
	var (
		out       alertOutcome
		attempted bool
	)
	err := s.overlays.Mutate(ctx, func(state repository.OverlayState) (bool, error) {
		out, attempted = alertOutcome{}, false
		o, _ := state.Get(v.Ticket)
		if o.OverdueAlerted {
			out.alerted, out.alertedTS = true, o.OverdueAlertedTS
			return false, nil
		}
		if o.Status == domain.StatusResolved {
			return false, nil
		}

		v.Status = o.Status
		msg := s.composer.OverdueAlert(v, s.thresholdHours, s.recipient)
		if err := sendBounded(ctx, s.notifier, s.sendTimeout, msg); err != nil {
			s.metrics.Inc(observability.MetricAlertFailed)
			s.logger.Warn("overdue alert email failed",
				zap.String("ticket", v.Ticket), zap.String("to", s.recipient), zap.Error(err))
		} else {
			s.metrics.Inc(observability.MetricAlertSent)
			out.delivered = true
		}

		o = o.Clone()
		o.OverdueAlerted = true
		o.OverdueAlertedTS = domain.FormatTimestamp(s.clock.Now())
		state[v.Ticket] = o
		out.alerted, out.alertedTS = true, o.OverdueAlertedTS
		attempted = true
		return true, nil
	})
	if err != nil {
		return alertOutcome{}, err
	}
	if attempted {
		s.logger.Info("overdue alert recorded",
			zap.String("ticket", v.Ticket), zap.Float64("age_hours", v.AgeHours), zap.Bool("delivered", out.delivered))
		publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventTicketOverdueAlerted, v.Ticket, "", s.clock.Now(),
			events.TicketOverdueAlertedPayload{AgeHours: v.AgeHours, Sent: out.delivered}))
	}
	return out, nil
}

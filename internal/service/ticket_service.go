package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
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

// TicketService serves merged ticket views and applies workflow updates.
type TicketService struct {
	log            repository.SubmissionLog
	overlays       *repository.OverlayGuard
	alerts         *AlertService
	notifier       notify.Notifier
	composer       *notify.Composer
	identity       IdentityProvider
	clock          clock.Clock
	dispatcher     events.Dispatcher
	logger         *zap.Logger
	metrics        *observability.Metrics
	thresholdHours float64
	sendTimeout    time.Duration
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Log            repository.SubmissionLog
	Overlays       *repository.OverlayGuard
	Alerts         *AlertService
	Notifier       notify.Notifier
	Composer       *notify.Composer
	Identity       IdentityProvider
	Clock          clock.Clock
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	ThresholdHours float64
	SendTimeout    time.Duration
}

// ListFilter narrows a listing. Empty fields match everything.
type ListFilter struct {
	// Query is matched case-insensitively against the whole serialized view.
	Query  string
	Kind   string
	Status string
}

// UpdateInput describes one admin update. Nil pointers leave the
// corresponding overlay field unchanged.
type UpdateInput struct {
	Status        *string
	Note          *string
	NotifyClient  bool
	NotifySubject string
}

// UpdateResult is the post-update view and the client notification outcome.
type UpdateResult struct {
	View       domain.View `json:"item"`
	EmailSent  bool        `json:"email_sent"`
	EmailError string      `json:"email_error,omitempty"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	threshold := deps.ThresholdHours
	if threshold <= 0 {
		threshold = domain.DefaultOverdueThresholdHours
	}
	return &TicketService{
		log:            deps.Log,
		overlays:       deps.Overlays,
		alerts:         deps.Alerts,
		notifier:       deps.Notifier,
		composer:       deps.Composer,
		identity:       deps.Identity,
		clock:          deps.Clock,
		dispatcher:     deps.Dispatcher,
		logger:         deps.Logger,
		metrics:        deps.Metrics,
		thresholdHours: threshold,
		sendTimeout:    deps.SendTimeout,
	}
}

// List returns merged views, newest first, matching filter.
func (s *TicketService) List(ctx context.Context, filter ListFilter) ([]domain.View, error) {
	var want domain.Status
	if strings.TrimSpace(filter.Status) != "" {
		st, ok := domain.ParseStatus(filter.Status)
		if !ok {
			return nil, apperrors.NewInvalidStatus(filter.Status)
		}
		want = st
	}
	records, err := s.log.ReadAll(ctx)
	if err != nil {
		return nil, apperrors.NewPersistenceFailure("read submission log", err)
	}
	state := s.overlays.Snapshot(ctx)
	now := s.clock.Now()
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	views := make([]domain.View, 0, len(records))
	for _, rec := range records {
		if filter.Kind != "" && string(rec.Kind) != filter.Kind {
			continue
		}
		v := s.merge(rec, state, now)
		if want != "" && v.Status != want {
			continue
		}
		if query != "" && !matchesQuery(v, query) {
			continue
		}
		views = append(views, v)
	}
	return views, nil
}

// Dashboard lists like List, then runs one overdue alert pass over the
// returned views. Alert failures are logged and never fail the read.
func (s *TicketService) Dashboard(ctx context.Context, filter ListFilter) ([]domain.View, error) {
	views, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if s.alerts == nil {
		return views, nil
	}
	sent, err := s.alerts.ScanAndAlert(ctx, views)
	if err != nil {
		s.logger.Error("overdue alert pass failed", zap.Error(err))
	}
	if sent > 0 {
		s.logger.Info("overdue alerts sent", zap.Int("count", sent))
	}
	return views, nil
}

// Get returns the merged view for ticket.
func (s *TicketService) Get(ctx context.Context, ticket string) (domain.View, error) {
	rec, err := s.find(ctx, ticket)
	if err != nil {
		return domain.View{}, err
	}
	return s.merge(rec, s.overlays.Snapshot(ctx), s.clock.Now()), nil
}

// Update applies in to ticket's overlay. The client notification, when
// requested, is attempted before persisting; its failure is reported in
// the result and never undoes the update.
func (s *TicketService) Update(ctx context.Context, ticket string, in UpdateInput) (UpdateResult, error) {
	var (
		newStatus domain.Status
		hasStatus bool
	)
	if in.Status != nil && strings.TrimSpace(*in.Status) != "" {
		st, ok := domain.ParseStatus(*in.Status)
		if !ok {
			return UpdateResult{}, apperrors.NewInvalidStatus(*in.Status)
		}
		newStatus, hasStatus = st, true
	}

	rec, err := s.find(ctx, ticket)
	if err != nil {
		return UpdateResult{}, err
	}
	actor := s.identity.CurrentActor(ctx)
	subject := strings.TrimSpace(in.NotifySubject)
	if subject == "" {
		subject = fmt.Sprintf("Update on Ticket %s", ticket)
	}

	var (
		result    UpdateResult
		oldStatus domain.Status
		updated   domain.Overlay
	)
	err = s.overlays.Mutate(ctx, func(state repository.OverlayState) (bool, error) {
		result = UpdateResult{}
		now := s.clock.Now()
		o, _ := state.Get(ticket)
		o = o.Clone()
		oldStatus = o.Status
		if hasStatus {
			o.Status = newStatus
		}
		if in.Note != nil {
			o.Note = strings.TrimSpace(*in.Note)
		}
		if in.NotifyClient {
			s.notifyClient(ctx, rec, o, now, subject, &result)
		}
		o.History = append(o.History, domain.AuditEntry{
			TS:        domain.FormatTimestamp(now),
			By:        actor,
			Status:    o.Status,
			Note:      o.Note,
			EmailSent: result.EmailSent,
		})
		state[ticket] = o
		updated = o
		return true, nil
	})
	if err != nil {
		s.logger.Error("persist ticket update failed", zap.String("ticket", ticket), zap.Error(err))
		return UpdateResult{}, apperrors.NewPersistenceFailure("update ticket", err)
	}

	s.metrics.Inc(observability.MetricTicketUpdated)
	s.logger.Info("ticket updated",
		zap.String("ticket", ticket),
		zap.String("by", actor),
		zap.String("status", string(updated.Status)),
		zap.Bool("email_sent", result.EmailSent))
	result.View = domain.Merge(rec, updated, s.clock.Now(), s.thresholdHours)
	publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventTicketUpdated, ticket, actor, s.clock.Now(),
		events.TicketUpdatedPayload{
			OldStatus: oldStatus,
			NewStatus: updated.Status,
			Note:      updated.Note,
			EmailSent: result.EmailSent,
		}))
	return result, nil
}

func (s *TicketService) notifyClient(ctx context.Context, rec domain.Submission, o domain.Overlay, now time.Time, subject string, result *UpdateResult) {
	email := rec.ContactEmail()
	if !domain.ValidEmail(email) {
		s.metrics.Inc(observability.MetricInvalidClientEmail)
		s.logger.Warn("client email missing or invalid; update not sent",
			zap.String("ticket", rec.Ticket), zap.String("email", email))
		result.EmailError = "no valid client email on file"
		return
	}
	msg := s.composer.TicketUpdate(domain.Merge(rec, o, now, s.thresholdHours), subject, email)
	if err := sendBounded(ctx, s.notifier, s.sendTimeout, msg); err != nil {
		s.metrics.Inc(observability.MetricNotifyFailed)
		s.logger.Warn("client update email failed", zap.String("ticket", rec.Ticket), zap.Error(err))
		result.EmailError = err.Error()
		return
	}
	s.metrics.Inc(observability.MetricNotifySent)
	result.EmailSent = true
}

func (s *TicketService) find(ctx context.Context, ticket string) (domain.Submission, error) {
	records, err := s.log.ReadAll(ctx)
	if err != nil {
		return domain.Submission{}, apperrors.NewPersistenceFailure("read submission log", err)
	}
	rec, ok := repository.FindTicket(records, ticket)
	if !ok {
		return domain.Submission{}, apperrors.NewNotFound("ticket", map[string]any{"ticket": ticket})
	}
	return rec, nil
}

func (s *TicketService) merge(rec domain.Submission, state repository.OverlayState, now time.Time) domain.View {
	o, _ := state.Get(rec.Ticket)
	v := domain.Merge(rec, o, now, s.thresholdHours)
	if v.TimestampFallback() {
		s.metrics.Inc(observability.MetricTimestampFallback)
		s.logger.Warn("unparsable submission timestamp; aged as now",
			zap.String("ticket", rec.Ticket), zap.String("ts", rec.TS))
	}
	return v
}

func matchesQuery(v domain.View, query string) bool {
	blob, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(blob)), query)
}

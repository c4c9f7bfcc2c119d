package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/intake-desk/internal/clock"
	"github.com/spec-kit/intake-desk/internal/domain"
	"github.com/spec-kit/intake-desk/internal/events"
	"github.com/spec-kit/intake-desk/internal/idgen"
	"github.com/spec-kit/intake-desk/internal/observability"
	"github.com/spec-kit/intake-desk/internal/repository"
	apperrors "github.com/spec-kit/intake-desk/pkg/util/errorutil"
)

// IntakeService records new submissions.
type IntakeService struct {
	log        repository.SubmissionLog
	overlays   *repository.OverlayGuard
	clock      clock.Clock
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	newID      func(prefix string) (string, error)
}

// IntakeDependencies bundles collaborators for the intake service.
type IntakeDependencies struct {
	Log        repository.SubmissionLog
	Overlays   *repository.OverlayGuard
	Clock      clock.Clock
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// IntakeInput is one form submission before it has a ticket.
type IntakeInput struct {
	Kind        domain.Kind
	Fields      domain.Fields
	Attachments []string
	Meta        domain.Fields
}

// NewIntakeService constructs the service.
func NewIntakeService(deps IntakeDependencies) *IntakeService {
	return &IntakeService{
		log:        deps.Log,
		overlays:   deps.Overlays,
		clock:      deps.Clock,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		newID:      idgen.Generate,
	}
}

// Submit validates in, assigns a ticket and appends it to the log. The
// submission is durable once Submit returns nil; notifications are sent
// afterwards by event handlers and cannot fail the call.
func (s *IntakeService) Submit(ctx context.Context, in IntakeInput) (domain.Submission, error) {
	spec, ok := domain.LookupKind(in.Kind)
	if !ok {
		return domain.Submission{}, apperrors.NewValidationError("unknown submission kind", map[string]any{"kind": in.Kind})
	}
	fields, err := normalizeFields(spec, in.Fields)
	if err != nil {
		return domain.Submission{}, err
	}

	ticket, err := s.newID(spec.Prefix)
	if err != nil {
		return domain.Submission{}, apperrors.NewInternalError(err)
	}
	name, _ := fields.Get(domain.LabelName)
	email, _ := fields.Get(domain.LabelEmail)
	attachments := in.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	sub := domain.Submission{
		Ticket:      ticket,
		Kind:        spec.Kind,
		Fields:      fields,
		Attachments: attachments,
		ClientName:  name,
		ClientEmail: email,
		Meta:        in.Meta.Clone(),
		TS:          domain.FormatTimestamp(s.clock.Now()),
	}
	if sub.Meta == nil {
		sub.Meta = domain.Fields{}
	}

	if err := s.log.Append(ctx, sub); err != nil {
		s.logger.Error("append submission failed", zap.String("ticket", ticket), zap.Error(err))
		return domain.Submission{}, apperrors.NewPersistenceFailure("append submission", err)
	}
	s.metrics.Inc(observability.MetricSubmissionAppended)

	// Merge falls back to the default overlay, so a failed ensure only
	// delays materializing the entry until the first update.
	if err := s.overlays.Ensure(ctx, ticket); err != nil {
		s.logger.Warn("ensure overlay failed", zap.String("ticket", ticket), zap.Error(err))
	}

	s.logger.Info("submission logged", zap.String("ticket", ticket), zap.String("kind", string(spec.Kind)))
	publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventSubmissionReceived, ticket, "", s.clock.Now(),
		events.SubmissionReceivedPayload{Submission: sub}))
	return sub, nil
}

// normalizeFields returns the kind's labels in schema order with trimmed
// values, rejecting unknown labels, missing required values and a
// malformed email.
func normalizeFields(spec domain.KindSpec, in domain.Fields) (domain.Fields, error) {
	var unknown []string
	for _, f := range in {
		if !spec.Allows(f.Label) {
			unknown = append(unknown, f.Label)
		}
	}
	if len(unknown) > 0 {
		return nil, apperrors.NewValidationError("unknown fields", map[string]any{"fields": unknown})
	}

	out := make(domain.Fields, 0, len(spec.Labels))
	for _, label := range spec.Labels {
		v, _ := in.Get(label)
		out = append(out, domain.Field{Label: label, Value: strings.TrimSpace(v)})
	}

	var missing []string
	for _, label := range spec.Required {
		if v, _ := out.Get(label); v == "" {
			missing = append(missing, label)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}
	if v, ok := out.Get(domain.LabelEmail); ok && v != "" && !domain.ValidEmail(v) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid %s", strings.ToLower(domain.LabelEmail)), map[string]any{"email": v})
	}
	return out, nil
}

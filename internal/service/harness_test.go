package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/intake-desk/internal/auth"
	"github.com/spec-kit/intake-desk/internal/clock"
	"github.com/spec-kit/intake-desk/internal/domain"
	"github.com/spec-kit/intake-desk/internal/events"
	"github.com/spec-kit/intake-desk/internal/notify"
	"github.com/spec-kit/intake-desk/internal/notify/notifytest"
	"github.com/spec-kit/intake-desk/internal/observability"
	"github.com/spec-kit/intake-desk/internal/repository"
)

var epoch = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

type harness struct {
	log        repository.SubmissionLog
	store      repository.OverlayStore
	guard      *repository.OverlayGuard
	clock      *clock.FakeClock
	notifier   *notifytest.Recorder
	metrics    *observability.Metrics
	dispatcher events.Dispatcher
	mu         sync.Mutex
	published  []events.Event
	alerts     *AlertService
	tickets    *TicketService
	intake     *IntakeService
}

type harnessOption func(*harness)

func withStore(store repository.OverlayStore) harnessOption {
	return func(h *harness) { h.store = store }
}

func withLog(log repository.SubmissionLog) harnessOption {
	return func(h *harness) { h.log = log }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	dir := t.TempDir()
	logger := zap.NewNop()
	h := &harness{
		clock:    clock.Fake(epoch),
		notifier: &notifytest.Recorder{},
		metrics:  observability.NewMetrics(),
	}
	h.log = repository.NewFileSubmissionLog(filepath.Join(dir, "submissions.jsonl"), logger, h.metrics)
	h.store = repository.NewFileOverlayStore(filepath.Join(dir, "ticket_state.json"))
	for _, opt := range opts {
		opt(h)
	}
	h.guard = repository.NewOverlayGuard(h.store, logger, h.metrics)
	h.dispatcher = events.NewInMemoryDispatcher(logger)
	for _, et := range events.AllEventTypes {
		h.dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.published = append(h.published, e)
			return nil
		})
	}
	composer := notify.NewComposer(notify.Brand{Name: "Desk", ReplyTo: "desk@example.com"})
	h.alerts = NewAlertService(AlertDependencies{
		Overlays:    h.guard,
		Notifier:    h.notifier,
		Composer:    composer,
		Clock:       h.clock,
		Dispatcher:  h.dispatcher,
		Logger:      logger,
		Metrics:     h.metrics,
		Recipient:   "alerts@example.com",
		SendTimeout: time.Second,
	})
	h.tickets = NewTicketService(TicketDependencies{
		Log:         h.log,
		Overlays:    h.guard,
		Alerts:      h.alerts,
		Notifier:    h.notifier,
		Composer:    composer,
		Identity:    auth.ContextIdentity{},
		Clock:       h.clock,
		Dispatcher:  h.dispatcher,
		Logger:      logger,
		Metrics:     h.metrics,
		SendTimeout: time.Second,
	})
	h.intake = NewIntakeService(IntakeDependencies{
		Log:        h.log,
		Overlays:   h.guard,
		Clock:      h.clock,
		Dispatcher: h.dispatcher,
		Logger:     logger,
		Metrics:    h.metrics,
	})
	return h
}

// seed appends a submission made age ago.
func (h *harness) seed(t *testing.T, ticket string, age time.Duration, email string) domain.Submission {
	t.Helper()
	s := domain.Submission{
		Ticket: ticket,
		Kind:   domain.KindContact,
		Fields: domain.Fields{
			{Label: domain.LabelName, Value: "Client " + ticket},
			{Label: domain.LabelEmail, Value: email},
			{Label: domain.LabelMessage, Value: "hello"},
		},
		Attachments: []string{},
		ClientName:  "Client " + ticket,
		ClientEmail: email,
		TS:          domain.FormatTimestamp(h.clock.Now().Add(-age)),
	}
	if err := h.log.Append(context.Background(), s); err != nil {
		t.Fatalf("seed %s: %v", ticket, err)
	}
	return s
}

func (h *harness) overlay(t *testing.T, ticket string) domain.Overlay {
	t.Helper()
	state, err := h.store.Load(context.Background())
	if err != nil {
		t.Fatalf("load overlay: %v", err)
	}
	o, _ := state.Get(ticket)
	return o
}

func (h *harness) eventsOf(et events.EventType) []events.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []events.Event
	for _, e := range h.published {
		if e.Type == et {
			out = append(out, e)
		}
	}
	return out
}

func ptr(s string) *string { return &s }

type brokenStore struct {
	repository.OverlayStore
	saveErr error
}

func (b brokenStore) Save(context.Context, repository.OverlayState) error {
	return b.saveErr
}

type brokenLog struct{ err error }

func (b brokenLog) Append(context.Context, domain.Submission) error { return b.err }

func (b brokenLog) ReadAll(context.Context) ([]domain.Submission, error) { return nil, b.err }

var errDisk = errors.New("disk full")

package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/intake-desk/internal/domain"
	"github.com/spec-kit/intake-desk/internal/events"
	"github.com/spec-kit/intake-desk/internal/notify"
	"github.com/spec-kit/intake-desk/internal/notify/notifytest"
	"github.com/spec-kit/intake-desk/internal/observability"
	apperrors "github.com/spec-kit/intake-desk/pkg/util/errorutil"
)

func contactInput(email string) IntakeInput {
	return IntakeInput{
		Kind: domain.KindContact,
		Fields: domain.Fields{
			{Label: domain.LabelMessage, Value: "Need a quote for LT panel"},
			{Label: domain.LabelName, Value: "  Priya "},
			{Label: domain.LabelEmail, Value: email},
		},
		Meta: domain.Fields{{Label: domain.MetaIP, Value: "10.0.0.5"}},
	}
}

func TestSubmitLogsAndEnsuresOverlay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sub, err := h.intake.Submit(ctx, contactInput("priya@example.com"))
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if !regexp.MustCompile(`^CO-[2-9A-HJ-NP-Z]{8}$`).MatchString(sub.Ticket) {
		t.Errorf("ticket = %q", sub.Ticket)
	}
	if sub.TS != domain.FormatTimestamp(epoch) {
		t.Errorf("TS = %q", sub.TS)
	}
	if got := strings.Join(sub.Fields.Labels(), ","); got != "Name,Email,Message" {
		t.Errorf("labels = %s, want schema order", got)
	}
	if sub.ClientName != "Priya" || sub.ClientEmail != "priya@example.com" {
		t.Errorf("client = %q <%s>", sub.ClientName, sub.ClientEmail)
	}

	records, err := h.log.ReadAll(ctx)
	if err != nil || len(records) != 1 || records[0].Ticket != sub.Ticket {
		t.Fatalf("log = %v, %v", records, err)
	}
	if _, ok := h.guard.Snapshot(ctx)[sub.Ticket]; !ok {
		t.Error("overlay entry not ensured")
	}
	if got := h.eventsOf(events.EventSubmissionReceived); len(got) != 1 || got[0].Ticket != sub.Ticket {
		t.Errorf("events = %+v", got)
	}
	if h.metrics.Count(observability.MetricSubmissionAppended) != 1 {
		t.Error("append not counted")
	}
}

func TestSubmitValidation(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   IntakeInput
	}{
		{"unknown kind", IntakeInput{Kind: "Complaint"}},
		{"unknown field", IntakeInput{Kind: domain.KindContact, Fields: append(contactInput("a@b.co").Fields, domain.Field{Label: "Budget", Value: "1"})}},
		{"missing required", IntakeInput{Kind: domain.KindContact, Fields: domain.Fields{{Label: domain.LabelName, Value: "x"}, {Label: domain.LabelEmail, Value: "a@b.co"}}}},
		{"blank required", contactInput("   ")},
		{"invalid email", contactInput("priya@example")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.intake.Submit(context.Background(), tc.in)
			if !apperrors.IsCode(err, apperrors.CodeValidation) {
				t.Fatalf("Submit error = %v, want VALIDATION_FAILED", err)
			}
			records, _ := h.log.ReadAll(context.Background())
			if len(records) != 0 {
				t.Fatal("rejected submission was logged")
			}
		})
	}
}

func TestSubmitAppendFailure(t *testing.T) {
	h := newHarness(t, withLog(brokenLog{err: errDisk}))
	_, err := h.intake.Submit(context.Background(), contactInput("priya@example.com"))
	if !apperrors.IsCode(err, apperrors.CodePersistence) || !errors.Is(err, errDisk) {
		t.Fatalf("Submit error = %v, want PERSISTENCE_FAILED", err)
	}
	if len(h.eventsOf(events.EventSubmissionReceived)) != 0 {
		t.Fatal("event published for an unlogged submission")
	}
}

func TestSubmitProjectKindPrefix(t *testing.T) {
	h := newHarness(t)
	sub, err := h.intake.Submit(context.Background(), IntakeInput{
		Kind: domain.KindProject,
		Fields: domain.Fields{
			{Label: domain.LabelName, Value: "Arun"},
			{Label: domain.LabelEmail, Value: "arun@example.com"},
			{Label: domain.LabelSiteVisit, Value: "Yes"},
		},
		Attachments: []string{"scope.pdf"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(sub.Ticket, "PR-") || len(sub.Fields) != 11 || sub.Attachments[0] != "scope.pdf" {
		t.Fatalf("submission = %+v", sub)
	}
}

func newNotificationHarness(t *testing.T, fail error) (*harness, *notifytest.Recorder) {
	t.Helper()
	h := newHarness(t)
	rec := &notifytest.Recorder{}
	if fail != nil {
		rec.Fail = notifytest.FailAll(fail)
	}
	svc := NewNotificationService(NotificationDependencies{
		Dispatcher:  h.dispatcher,
		Notifier:    rec,
		Composer:    notify.NewComposer(notify.Brand{ReplyTo: "desk@example.com"}),
		Recipients:  []string{"ops@example.com", "hr@example.com"},
		SendTimeout: time.Second,
		Logger:      zap.NewNop(),
		Metrics:     h.metrics,
	})
	svc.RegisterHandlers()
	return h, rec
}

func TestNotificationsFollowSubmission(t *testing.T) {
	h, rec := newNotificationHarness(t, nil)
	sub, err := h.intake.Submit(context.Background(), contactInput("priya@example.com"))
	if err != nil {
		t.Fatal(err)
	}
	sent := rec.Sent()
	if len(sent) != 2 {
		t.Fatalf("sent %d messages, want admin + ack", len(sent))
	}
	if strings.Join(sent[0].To, ",") != "ops@example.com,hr@example.com" || sent[0].ReplyTo != "priya@example.com" {
		t.Errorf("admin message = %+v", sent[0])
	}
	if sent[1].To[0] != "priya@example.com" || !strings.Contains(sent[1].Subject, sub.Ticket) {
		t.Errorf("ack message = %+v", sent[1])
	}
}

func TestNotificationFailureDoesNotFailIntake(t *testing.T) {
	h, rec := newNotificationHarness(t, errors.New("relay down"))
	sub, err := h.intake.Submit(context.Background(), contactInput("priya@example.com"))
	if err != nil {
		t.Fatalf("Submit error = %v, want nil despite relay failure", err)
	}
	if len(rec.Attempts()) != 2 {
		t.Errorf("attempts = %d, want 2", len(rec.Attempts()))
	}
	if _, err := h.tickets.Get(context.Background(), sub.Ticket); err != nil {
		t.Fatalf("submission not retrievable: %v", err)
	}
	if h.metrics.Count(observability.MetricNotifyFailed) != 2 {
		t.Error("failures not counted")
	}
}

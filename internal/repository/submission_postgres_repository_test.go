package repository

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/intake-desk/internal/domain"
	"github.com/spec-kit/intake-desk/internal/observability"
	"github.com/spec-kit/intake-desk/internal/persistence"
)

// newPostgresLog connects to POSTGRES_TEST_DSN, migrates, and empties the
// submissions table. The test is skipped when the variable is unset.
func newPostgresLog(t *testing.T) SubmissionLog {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := persistence.RunMigrations(pool, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, "TRUNCATE submissions"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return NewPostgresSubmissionLog(pool, zap.NewNop(), observability.NewMetrics())
}

func TestPostgresSubmissionLog(t *testing.T) {
	log := newPostgresLog(t)
	ctx := context.Background()

	contact := domain.Submission{
		Ticket: "CO-1",
		Kind:   domain.KindContact,
		Fields: domain.Fields{
			{Label: domain.LabelName, Value: "Asha"},
			{Label: domain.LabelEmail, Value: "asha@example.com"},
			{Label: domain.LabelMessage, Value: "Breaker trips"},
		},
		ClientName:  "Asha",
		ClientEmail: "asha@example.com",
		Meta: domain.Fields{
			{Label: domain.MetaUserAgent, Value: "curl"},
			{Label: domain.MetaIP, Value: "10.0.0.1"},
		},
		TS: "2026-01-01T08:00:00.000000Z",
	}
	resubmitted := contact
	resubmitted.TS = "2026-01-02T08:00:00.000000Z"
	resubmitted.Attachments = []string{"plan.pdf"}

	for _, rec := range []domain.Submission{contact, sub("CO-2", "2026-01-01T09:00:00Z"), resubmitted} {
		if err := log.Append(ctx, rec); err != nil {
			t.Fatalf("Append(%s) error: %v", rec.Ticket, err)
		}
	}

	got, err := log.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if want := "CO-1@2026-01-02T08:00:00.000000Z,CO-2@2026-01-01T09:00:00Z"; tickets(got) != want {
		t.Fatalf("ReadAll() = %s, want %s", tickets(got), want)
	}
	if labels := strings.Join(got[0].Fields.Labels(), ","); labels != "Name,Email,Message" {
		t.Errorf("field order = %s, want Name,Email,Message", labels)
	}
	if labels := strings.Join(got[0].Meta.Labels(), ","); labels != domain.MetaUserAgent+","+domain.MetaIP {
		t.Errorf("meta order = %s", labels)
	}
	if len(got[0].Attachments) != 1 || got[0].Attachments[0] != "plan.pdf" {
		t.Errorf("attachments = %v", got[0].Attachments)
	}
}

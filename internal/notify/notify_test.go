package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/intake-desk/internal/config"
	"github.com/spec-kit/intake-desk/internal/domain"
)

func TestNewSMTPNotifierWithoutCredentials(t *testing.T) {
	n := NewSMTPNotifier(config.SMTPConfig{Host: "smtp.example.com", Port: 465}, zap.NewNop())
	if n.Ready() {
		t.Fatal("Ready() = true without credentials")
	}
	if err := n.Send(context.Background(), Message{To: []string{"a@example.com"}}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Send() = %v, want ErrNotConfigured", err)
	}
}

func TestSMTPNotifierRejectsEmptyRecipients(t *testing.T) {
	n := NewSMTPNotifier(config.SMTPConfig{
		Host: "smtp.example.com", Port: 465, Secure: "ssl",
		User: "desk@example.com", Password: "secret", From: "desk@example.com",
	}, zap.NewNop())
	if !n.Ready() {
		t.Fatal("Ready() = false with credentials")
	}
	if err := n.Send(context.Background(), Message{Subject: "x"}); err == nil {
		t.Fatal("Send() with no recipients succeeded")
	}
}

func sampleSubmission() domain.Submission {
	return domain.Submission{
		Ticket: "QU-7K3M9PQR",
		Kind:   domain.KindQuote,
		Fields: domain.Fields{
			{Label: domain.LabelName, Value: "Ravi <script>"},
			{Label: domain.LabelEmail, Value: "ravi@example.com"},
			{Label: domain.LabelNotes, Value: "needs | pipes\nand lines"},
		},
		Attachments: []string{"sld.pdf"},
		ClientName:  "Ravi",
		ClientEmail: "ravi@example.com",
		TS:          "2026-05-01T10:00:00.000000Z",
	}
}

func TestComposerAdminSubmission(t *testing.T) {
	c := NewComposer(Brand{Name: "AMC Spark", ReplyTo: "info@example.com"})
	msg := c.AdminSubmission(sampleSubmission(), []string{"ops@example.com"})

	if msg.Subject != "Quick Quote - Ticket QU-7K3M9PQR" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.ReplyTo != "ravi@example.com" {
		t.Errorf("ReplyTo = %q, want the client", msg.ReplyTo)
	}
	if strings.Contains(msg.HTML, "<script>") {
		t.Error("HTML contains unescaped client input")
	}
	if !strings.Contains(msg.HTML, "<table>") {
		t.Errorf("HTML has no table: %s", msg.HTML)
	}
	if !strings.Contains(msg.HTML, "sld.pdf") {
		t.Error("attachment missing from HTML")
	}
}

func TestComposerClientAck(t *testing.T) {
	c := NewComposer(Brand{ReplyTo: "info@example.com"})
	msg := c.ClientAck(sampleSubmission())
	if len(msg.To) != 1 || msg.To[0] != "ravi@example.com" {
		t.Errorf("To = %v", msg.To)
	}
	if msg.ReplyTo != "info@example.com" {
		t.Errorf("ReplyTo = %q", msg.ReplyTo)
	}
	if !strings.Contains(msg.Text, "Expect a quote") {
		t.Errorf("Text lacks the kind acknowledgement: %s", msg.Text)
	}
}

func TestComposerOverdueAlert(t *testing.T) {
	c := NewComposer(Brand{ReplyTo: "info@example.com"})
	v := domain.View{Submission: sampleSubmission(), Status: domain.StatusWIP, AgeHours: 26.04}
	msg := c.OverdueAlert(v, 20, "alerts@example.com")
	if msg.Subject != "[ALERT] Ticket overdue (>20h): QU-7K3M9PQR" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	for _, want := range []string{"WIP", "26.0", "Ravi"} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("HTML lacks %q", want)
		}
	}
}

func TestComposerTicketUpdate(t *testing.T) {
	c := NewComposer(Brand{})
	v := domain.View{Submission: sampleSubmission(), Status: domain.StatusResolved}
	msg := c.TicketUpdate(v, "Update on Ticket QU-7K3M9PQR", "ravi@example.com")
	if !strings.Contains(msg.Text, "(no remarks)") {
		t.Errorf("Text = %s", msg.Text)
	}
	if !strings.Contains(msg.HTML, "RESOLVED") {
		t.Errorf("HTML = %s", msg.HTML)
	}
}

func TestRenderHTMLOmitsRawHTML(t *testing.T) {
	got := RenderHTML("hello <b>world</b>")
	if strings.Contains(got, "<b>") {
		t.Fatalf("RenderHTML kept raw HTML: %s", got)
	}
}

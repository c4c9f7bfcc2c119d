package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/intake-desk/internal/api/dto"
	"github.com/spec-kit/intake-desk/internal/clock"
	"github.com/spec-kit/intake-desk/internal/config"
	"github.com/spec-kit/intake-desk/internal/domain"
	"github.com/spec-kit/intake-desk/internal/notify/notifytest"
	"github.com/spec-kit/intake-desk/internal/service"
)

type testDesk struct {
	app      *App
	http     *fiber.App
	clock    *clock.FakeClock
	notifier *notifytest.Recorder
}

func newTestDesk(t *testing.T) *testDesk {
	t.Helper()
	return newTestDeskIn(t, t.TempDir())
}

// newTestDeskIn builds a desk whose log and overlay live under dir, so two
// desks can share storage the way the API server and deskctl do.
func newTestDeskIn(t *testing.T, dir string) *testDesk {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Name: "intake-desk", Version: "test"},
		Storage: config.StorageConfig{
			LogBackend:     config.BackendFile,
			LogPath:        filepath.Join(dir, "submissions.jsonl"),
			OverlayBackend: config.BackendFile,
			OverlayPath:    filepath.Join(dir, "ticket_state.json"),
		},
		Auth: config.AuthConfig{
			AdminUser:             "admin",
			AdminPassword:         "s3cret",
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 60,
			BcryptCost:            4,
		},
		SMTP: config.SMTPConfig{Host: "smtp.example.com", Port: 465, Secure: "ssl", User: "relay@example.com"},
		Notification: config.NotificationConfig{
			AdminEmails: []string{"ops@example.com"},
			AlertEmail:  "alerts@example.com",
			ReplyTo:     "desk@example.com",
			BrandName:   "Desk",
		},
		Alert:   config.AlertConfig{ThresholdHours: 20, SendTimeoutSeconds: 1},
		Uploads: config.UploadsConfig{Dir: filepath.Join(dir, "uploads"), MaxTotalMB: 1, AllowedExts: []string{".pdf"}},
	}
	fc := clock.Fake(time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC))
	rec := &notifytest.Recorder{}
	a, err := New(context.Background(), cfg, zap.NewNop(), Options{Clock: fc, Notifier: rec})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(a.Close)
	return &testDesk{app: a, http: a.HTTP(), clock: fc, notifier: rec}
}

func (d *testDesk) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := d.http.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func (d *testDesk) login(t *testing.T) string {
	t.Helper()
	status, body := d.do(t, http.MethodPost, "/admin/login", "", dto.LoginRequest{Username: "admin", Password: "s3cret"})
	if status != http.StatusOK {
		t.Fatalf("login status = %d body=%s", status, body)
	}
	var resp dto.LoginResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Token == "" {
		t.Fatalf("login response %s: %v", body, err)
	}
	return resp.Token
}

func (d *testDesk) submitContact(t *testing.T, email string) string {
	t.Helper()
	status, body := d.do(t, http.MethodPost, "/api/contact", "", dto.ContactRequest{
		Name: "Ada", Email: email, Message: "Breaker trips under load",
	})
	if status != http.StatusCreated {
		t.Fatalf("contact status = %d body=%s", status, body)
	}
	var accepted dto.SubmissionAccepted
	if err := json.Unmarshal(body, &accepted); err != nil || accepted.Ticket == "" {
		t.Fatalf("contact response %s: %v", body, err)
	}
	return accepted.Ticket
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode error envelope %s: %v", body, err)
	}
	return env.Error.Code
}

func TestIntakeNotifiesAdminsAndClient(t *testing.T) {
	d := newTestDesk(t)
	ticket := d.submitContact(t, "ada@example.com")

	sent := d.notifier.Sent()
	if len(sent) != 2 {
		t.Fatalf("sent %d messages, want admin + ack", len(sent))
	}
	if sent[0].ReplyTo != "ada@example.com" {
		t.Errorf("admin ReplyTo = %q", sent[0].ReplyTo)
	}
	if got := sent[1].To; len(got) != 1 || got[0] != "ada@example.com" {
		t.Errorf("ack To = %v", got)
	}
	if !bytes.Contains([]byte(sent[0].Subject), []byte(ticket)) {
		t.Errorf("admin subject %q lacks ticket %s", sent[0].Subject, ticket)
	}
}

func TestIntakeRejectsInvalidEmail(t *testing.T) {
	d := newTestDesk(t)
	status, body := d.do(t, http.MethodPost, "/api/contact", "", dto.ContactRequest{Name: "Ada", Email: "nope"})
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d body=%s", status, body)
	}
	if code := errorCode(t, body); code != "VALIDATION_FAILED" {
		t.Errorf("code = %q", code)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	d := newTestDesk(t)
	status, _ := d.do(t, http.MethodGet, "/admin/api/tickets", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	status, _ = d.do(t, http.MethodPost, "/admin/login", "", dto.LoginRequest{Username: "admin", Password: "wrong"})
	if status != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want 401", status)
	}
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	d := newTestDesk(t)
	ticket := d.submitContact(t, "ada@example.com")
	token := d.login(t)

	status, body := d.do(t, http.MethodGet, "/admin/api/tickets", token, nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d body=%s", status, body)
	}
	var list dto.TicketListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 1 || list.Items[0].Ticket != ticket || list.Items[0].Status != domain.StatusOpen {
		t.Fatalf("list = %+v", list.Items)
	}

	status, body = d.do(t, http.MethodPatch, "/admin/api/tickets/"+ticket, token, map[string]any{
		"status": "wip", "note": "crew booked", "email_client": true,
	})
	if status != http.StatusOK {
		t.Fatalf("patch status = %d body=%s", status, body)
	}
	var upd dto.UpdateTicketResponse
	if err := json.Unmarshal(body, &upd); err != nil {
		t.Fatal(err)
	}
	if upd.Item.Status != domain.StatusWIP || upd.Item.Note != "crew booked" || !upd.EmailSent {
		t.Fatalf("update = %+v", upd)
	}
	if len(upd.Item.History) != 1 || upd.Item.History[0].By != "admin" {
		t.Fatalf("history = %+v", upd.Item.History)
	}

	status, body = d.do(t, http.MethodGet, "/admin/api/tickets/"+ticket, token, nil)
	if status != http.StatusOK {
		t.Fatalf("get status = %d body=%s", status, body)
	}
	var got dto.TicketResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got.Item.Status != domain.StatusWIP {
		t.Fatalf("persisted status = %q", got.Item.Status)
	}
}

func TestUpdateErrorsOverHTTP(t *testing.T) {
	d := newTestDesk(t)
	ticket := d.submitContact(t, "ada@example.com")
	token := d.login(t)

	status, body := d.do(t, http.MethodPatch, "/admin/api/tickets/"+ticket, token, map[string]any{"status": "closed"})
	if status != http.StatusBadRequest || errorCode(t, body) != "INVALID_STATUS" {
		t.Fatalf("invalid status: %d %s", status, body)
	}

	status, body = d.do(t, http.MethodPatch, "/admin/api/tickets/T-MISSING", token, map[string]any{"status": "wip"})
	if status != http.StatusNotFound || errorCode(t, body) != "NOT_FOUND" {
		t.Fatalf("unknown ticket: %d %s", status, body)
	}

	status, _ = d.do(t, http.MethodGet, "/admin/api/tickets/T-MISSING", token, nil)
	if status != http.StatusNotFound {
		t.Fatalf("get unknown = %d", status)
	}
}

func TestListingRaisesOverdueAlertOnce(t *testing.T) {
	d := newTestDesk(t)
	d.submitContact(t, "ada@example.com")
	token := d.login(t)
	before := len(d.notifier.Sent())

	d.clock.Advance(21 * time.Hour)
	for i := 0; i < 2; i++ {
		status, body := d.do(t, http.MethodGet, "/admin/api/tickets", token, nil)
		if status != http.StatusOK {
			t.Fatalf("list status = %d body=%s", status, body)
		}
		var list dto.TicketListResponse
		if err := json.Unmarshal(body, &list); err != nil {
			t.Fatal(err)
		}
		if !list.Items[0].Overdue || !list.Items[0].OverdueAlerted {
			t.Fatalf("pass %d view = %+v", i, list.Items[0])
		}
	}
	alerts := d.notifier.Sent()[before:]
	if len(alerts) != 1 || alerts[0].To[0] != "alerts@example.com" {
		t.Fatalf("alerts = %+v", alerts)
	}
}

func TestHealthAndSMTPReady(t *testing.T) {
	d := newTestDesk(t)
	for _, path := range []string{"/health/live", "/health/ready", "/api/health"} {
		if status, body := d.do(t, http.MethodGet, path, "", nil); status != http.StatusOK {
			t.Errorf("%s status = %d body=%s", path, status, body)
		}
	}
	token := d.login(t)
	status, body := d.do(t, http.MethodGet, "/admin/api/smtp_ready", token, nil)
	if status != http.StatusOK || !bytes.Contains(body, []byte(`"ready":true`)) {
		t.Fatalf("smtp_ready: %d %s", status, body)
	}
}

func TestDesksSharingStorageAlertOnce(t *testing.T) {
	dir := t.TempDir()
	server := newTestDeskIn(t, dir)
	cli := newTestDeskIn(t, dir)
	server.submitContact(t, "ada@example.com")
	ctx := context.Background()

	server.clock.Advance(21 * time.Hour)
	cli.clock.Advance(21 * time.Hour)

	var wg sync.WaitGroup
	counts := make([]int, 2)
	for i, d := range []*testDesk{server, cli} {
		wg.Add(1)
		go func(i int, d *testDesk) {
			defer wg.Done()
			views, err := d.app.Tickets.List(ctx, service.ListFilter{})
			if err != nil {
				t.Errorf("List() error: %v", err)
				return
			}
			n, err := d.app.Alerts.ScanAndAlert(ctx, views)
			if err != nil {
				t.Errorf("ScanAndAlert() error: %v", err)
			}
			counts[i] = n
		}(i, d)
	}
	wg.Wait()

	if counts[0]+counts[1] != 1 {
		t.Fatalf("alerts sent = %v, want exactly one across both desks", counts)
	}
}

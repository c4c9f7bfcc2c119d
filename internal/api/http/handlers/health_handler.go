package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/intake-desk/internal/config"
	"github.com/spec-kit/intake-desk/internal/domain"
	"github.com/spec-kit/intake-desk/internal/notify"
)

// Check is one readiness probe.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	cfg      *config.Config
	notifier notify.Notifier
	checks   []Check
	now      func() time.Time
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(cfg *config.Config, notifier notify.Notifier, now func() time.Time, checks ...Check) *HealthHandler {
	return &HealthHandler{cfg: cfg, notifier: notifier, checks: checks, now: now}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.cfg.App.Name,
		"version": h.cfg.App.Version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			depStatus[check.Name] = err.Error()
			ready = false
		} else {
			depStatus[check.Name] = "ok"
		}
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}

// Info GET /api/health. Reports relay and storage settings without secrets.
func (h *HealthHandler) Info(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"ok":           true,
		"time":         domain.FormatTimestamp(h.now()),
		"smtp_host":    h.cfg.SMTP.Host,
		"secure":       h.cfg.SMTP.Secure,
		"smtp_user":    maskUser(h.cfg.SMTP.User),
		"upload_dir":   h.cfg.Uploads.Dir,
		"max_email_mb": h.cfg.Uploads.MaxTotalMB,
		"log_backend":  h.cfg.Storage.LogBackend,
		"log_file":     h.cfg.Storage.LogPath,
	})
}

// SMTPReady GET /admin/api/smtp_ready.
func (h *HealthHandler) SMTPReady(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true, "ready": h.notifier.Ready()})
}

// maskUser keeps the first and last character of the mailbox name.
func maskUser(u string) string {
	if u == "" {
		return ""
	}
	local, domainPart, found := strings.Cut(u, "@")
	if !found {
		return "***"
	}
	if len(local) <= 2 {
		return "***@" + domainPart
	}
	return local[:1] + "***" + local[len(local)-1:] + "@" + domainPart
}

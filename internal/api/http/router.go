package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/intake-desk/internal/api/http/handlers"
	"github.com/spec-kit/intake-desk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Intake         *handlers.IntakeHandler
	Tickets        *handlers.TicketsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	public := app.Group("/api")
	public.Get("/health", cfg.Health.Info)
	public.Post("/contact", cfg.Intake.Contact)
	public.Post("/quote", cfg.Intake.Quote)
	public.Post("/project", cfg.Intake.Project)

	admin := app.Group("/admin")
	admin.Post("/login", cfg.Admin.Login)

	protected := admin.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	protected.Get("/tickets", cfg.Tickets.ListTickets)
	protected.Get("/tickets/:ticket", cfg.Tickets.GetTicket)
	protected.Patch("/tickets/:ticket", cfg.Tickets.UpdateTicket)
	protected.Get("/smtp_ready", cfg.Health.SMTPReady)
	protected.Get("/metrics", cfg.Admin.Metrics)
}

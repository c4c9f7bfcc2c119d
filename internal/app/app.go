// Package app assembles the desk's stores, services and HTTP server from
// configuration. Both binaries start here.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/intake-desk/internal/api/http"
	"github.com/spec-kit/intake-desk/internal/api/http/handlers"
	"github.com/spec-kit/intake-desk/internal/auth"
	"github.com/spec-kit/intake-desk/internal/clock"
	"github.com/spec-kit/intake-desk/internal/config"
	"github.com/spec-kit/intake-desk/internal/events"
	"github.com/spec-kit/intake-desk/internal/notify"
	"github.com/spec-kit/intake-desk/internal/observability"
	"github.com/spec-kit/intake-desk/internal/persistence"
	"github.com/spec-kit/intake-desk/internal/repository"
	"github.com/spec-kit/intake-desk/internal/service"
	"github.com/spec-kit/intake-desk/internal/uploads"
	"github.com/spec-kit/intake-desk/internal/worker"
)

// App holds every long-lived component.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Clock      clock.Clock
	Postgres   *persistence.Postgres
	Redis      *persistence.Redis
	Log        repository.SubmissionLog
	Overlays   *repository.OverlayGuard
	Dispatcher events.Dispatcher
	Publisher  *events.NATSPublisher
	Notifier   notify.Notifier
	Tokens     *auth.TokenManager
	Uploads    *uploads.Store

	Intake        *service.IntakeService
	Tickets       *service.TicketService
	Alerts        *service.AlertService
	Notifications *service.NotificationService
	AdminAuth     *service.AdminAuthService
}

// Options overrides collaborators, mainly for tests and the CLI.
type Options struct {
	Clock    clock.Clock
	Notifier notify.Notifier
	Identity service.IdentityProvider
	// SkipNotifications leaves intake acknowledgements unregistered.
	SkipNotifications bool
}

// New builds the application. Call Close when done.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Metrics: observability.NewMetrics(), Clock: opts.Clock}
	if a.Clock == nil {
		a.Clock = clock.Real()
	}

	if err := a.openStores(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.Notifier = opts.Notifier
	if a.Notifier == nil {
		a.Notifier = notify.NewSMTPNotifier(cfg.SMTP, logger)
	}
	composer := notify.NewComposer(notify.Brand{Name: cfg.Notification.BrandName, ReplyTo: cfg.Notification.ReplyTo})

	a.Dispatcher = events.NewInMemoryDispatcher(logger)
	if cfg.Events.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.SubjectPrefix)
		if err != nil {
			logger.Warn("nats unavailable; event bridge disabled", zap.Error(err))
		} else {
			a.Publisher = pub
		}
	}

	identity := opts.Identity
	if identity == nil {
		identity = auth.ContextIdentity{Fallback: cfg.Auth.AdminUser}
	}

	a.Alerts = service.NewAlertService(service.AlertDependencies{
		Overlays:       a.Overlays,
		Notifier:       a.Notifier,
		Composer:       composer,
		Clock:          a.Clock,
		Dispatcher:     a.Dispatcher,
		Logger:         logger,
		Metrics:        a.Metrics,
		Recipient:      cfg.Notification.AlertEmail,
		ThresholdHours: cfg.Alert.ThresholdHours,
		SendTimeout:    cfg.Alert.SendTimeout(),
	})
	a.Tickets = service.NewTicketService(service.TicketDependencies{
		Log:            a.Log,
		Overlays:       a.Overlays,
		Alerts:         a.Alerts,
		Notifier:       a.Notifier,
		Composer:       composer,
		Identity:       identity,
		Clock:          a.Clock,
		Dispatcher:     a.Dispatcher,
		Logger:         logger,
		Metrics:        a.Metrics,
		ThresholdHours: cfg.Alert.ThresholdHours,
		SendTimeout:    cfg.Alert.SendTimeout(),
	})
	a.Intake = service.NewIntakeService(service.IntakeDependencies{
		Log:        a.Log,
		Overlays:   a.Overlays,
		Clock:      a.Clock,
		Dispatcher: a.Dispatcher,
		Logger:     logger,
		Metrics:    a.Metrics,
	})
	a.Notifications = service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:  a.Dispatcher,
		Notifier:    a.Notifier,
		Composer:    composer,
		Recipients:  cfg.Recipients(),
		SendTimeout: cfg.SMTP.Timeout(),
		Logger:      logger,
		Metrics:     a.Metrics,
	})

	a.Tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	adminAuth, err := service.NewAdminAuthService(cfg.Auth, a.Tokens, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("admin auth: %w", err)
	}
	a.AdminAuth = adminAuth
	a.Uploads = uploads.NewStore(cfg.Uploads, logger)

	if !opts.SkipNotifications {
		worker.StartNotificationWorker(a.Notifications)
	}
	worker.StartEventBridge(a.Dispatcher, a.Publisher, logger)
	return a, nil
}

func (a *App) openStores(ctx context.Context) error {
	cfg, logger := a.Config, a.Logger

	switch cfg.Storage.LogBackend {
	case config.BackendPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.Postgres = pg
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(pg.PoolHandle(), logger); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}
		a.Log = repository.NewPostgresSubmissionLog(pg.PoolHandle(), logger, a.Metrics)
	default:
		a.Log = repository.NewFileSubmissionLog(cfg.Storage.LogPath, logger, a.Metrics)
	}

	var store repository.OverlayStore
	switch cfg.Storage.OverlayBackend {
	case config.BackendRedis:
		a.Redis = persistence.NewRedis(ctx, cfg.Redis, logger)
		store = repository.NewRedisOverlayStore(a.Redis.Client, cfg.Storage.OverlayKey)
	default:
		store = repository.NewFileOverlayStore(cfg.Storage.OverlayPath)
	}
	a.Overlays = repository.NewOverlayGuard(store, logger, a.Metrics)
	return nil
}

// HTTP builds the fiber server with every route registered.
func (a *App) HTTP() *fiber.App {
	server := httptransport.NewServer(a.Config.App.Name, a.Config.Uploads.MaxBodyBytes)
	httptransport.RegisterMiddlewares(server, a.Logger, a.Metrics, a.Config.App.RequestTimeout())

	httptransport.RegisterRoutes(server, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(a.Config, a.Notifier, a.Clock.Now, a.readinessChecks()...),
		Intake:         handlers.NewIntakeHandler(a.Intake, a.Uploads, a.Logger),
		Tickets:        handlers.NewTicketsHandler(a.Tickets),
		Admin:          handlers.NewAdminHandler(a.AdminAuth, a.Metrics),
		AuthMiddleware: auth.NewAuthMiddleware(a.Tokens),
	})
	return server
}

func (a *App) readinessChecks() []handlers.Check {
	checks := []handlers.Check{{
		Name: "submission_log",
		Ping: func(ctx context.Context) error {
			_, err := a.Log.ReadAll(ctx)
			return err
		},
	}}
	if a.Postgres.Enabled() {
		checks = append(checks, handlers.Check{Name: "postgres", Ping: a.Postgres.Ping})
	}
	if a.Redis.Enabled() {
		checks = append(checks, handlers.Check{Name: "redis", Ping: a.Redis.Ping})
	}
	return checks
}

// Close releases connections.
func (a *App) Close() {
	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	a.Redis.Close()
	a.Postgres.Close()
	if err := errors.Join(errs...); err != nil {
		a.Logger.Warn("close failed", zap.Error(err))
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/intake-desk/internal/app"
	"github.com/spec-kit/intake-desk/internal/config"
	"github.com/spec-kit/intake-desk/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	desk, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer desk.Close()

	server := desk.HTTP()
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.Bool("smtp_ready", desk.Notifier.Ready()))
		if err := server.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = server.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

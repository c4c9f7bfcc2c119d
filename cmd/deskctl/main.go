// Command deskctl operates on the ticket log and overlay directly, using
// the same configuration as the API server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/intake-desk/internal/app"
	"github.com/spec-kit/intake-desk/internal/auth"
	"github.com/spec-kit/intake-desk/internal/config"
	"github.com/spec-kit/intake-desk/internal/observability"
)

var (
	jsonOutput bool
	actor      string

	desk   *app.App
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "deskctl <command>",
	Short:         "Inspect and update intake desk tickets",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger, err = observability.NewLogger(cfg.Logger)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		desk, err = app.New(context.Background(), cfg, logger, app.Options{
			Identity:          auth.StaticIdentity(actor),
			SkipNotifications: true,
		})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if desk != nil {
			desk.Close()
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", defaultActor(), "name recorded in ticket history")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(scanCmd)
}

func defaultActor() string {
	if s := os.Getenv("DESK_ACTOR"); s != "" {
		return s
	}
	return auth.DefaultActor
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

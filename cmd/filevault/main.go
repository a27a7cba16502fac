package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/filevault/internal/app"
	"github.com/dharsanguruparan/filevault/internal/config"
	"github.com/dharsanguruparan/filevault/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "filevault: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filevault",
		Short: "filevault operator CLI",
		Long: `filevault runs the API and the job worker, prepares storage backends and reports
record counts. Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newServeCmd(),
		newWorkerCmd(),
		newMigrateCmd(),
		newStatsCmd(),
	)
	return cmd
}

// loadEnv reads the configuration and builds the shared logger.
func loadEnv() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logging.New(cfg), nil
}

func newServeCmd() *cobra.Command {
	var inline bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnv()
			if err != nil {
				return err
			}
			if inline {
				cfg.QueueMode = config.QueueInline
			}
			if cfg.IsProduction() {
				gin.SetMode(gin.ReleaseMode)
			}
			return app.RunAPI(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().BoolVar(&inline, "inline", false, "Process jobs in this process instead of a separate worker")
	return cmd
}

func newWorkerCmd() *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume thumbnail and welcome jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnv()
			if err != nil {
				return err
			}
			if concurrency > 0 {
				cfg.WorkerCount = concurrency
			}
			return app.RunWorker(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "Override FILEVAULT_WORKERS")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create indexes, tables and the blob bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnv()
			if err != nil {
				return err
			}
			return app.Migrate(cmd.Context(), cfg, logger)
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print user and file counts as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			counts, err := app.Stats(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(counts)
		},
	}
}

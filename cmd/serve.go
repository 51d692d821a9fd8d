package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sitescout/sitescout/internal/config"
	"github.com/sitescout/sitescout/internal/logging"
	"github.com/sitescout/sitescout/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the search service",
		Long: `Starts the HTTP server that accepts search submissions, runs the
crawl-and-search engine, and streams job progress over WebSockets.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	app, err := server.NewApp(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("init application: %w", err)
	}

	if err := app.Run(cmd.Context()); err != nil {
		logger.Error("application exited with error", zap.Error(err))
		return err
	}
	return nil
}

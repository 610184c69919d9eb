package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/golovatskygroup/hookbase-mcp/internal/config"
	"github.com/golovatskygroup/hookbase-mcp/internal/journal"
	"github.com/golovatskygroup/hookbase-mcp/internal/server"
	"github.com/golovatskygroup/hookbase-mcp/internal/telemetry"
)

// NewServeCmd creates the "serve" command.
func NewServeCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdin/stdout (default)",
		Args:  cobra.NoArgs,
		RunE:  serveRunE(version),
	}
}

func serveRunE(version string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(cmd.ErrOrStderr(), settings.Debug)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		shutdown, err := telemetry.Setup(ctx, os.Getenv(telemetry.EnvEndpoint), logger)
		if err != nil {
			return exitError(exitRuntime, "telemetry: %s", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				logger.Warn("telemetry shutdown", "error", err)
			}
		}()

		observer, err := telemetry.NewObserver()
		if err != nil {
			return exitError(exitRuntime, "telemetry: %s", err)
		}

		opts := server.Options{
			Name:     "hookbase-mcp",
			Version:  version,
			Strict:   settings.Strict,
			Logger:   logger,
			Observer: observer,
		}
		if settings.JournalPath != "" {
			j, err := journal.Open(settings.JournalPath)
			if err != nil {
				return exitError(exitRuntime, "%s", err)
			}
			defer j.Close()
			opts.Journal = j
		}

		resolver := config.NewResolver(settings, clientFactory(settings, logger, version), logger)
		srv := server.New(cmd.InOrStdin(), cmd.OutOrStdout(), resolver, opts)
		if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
			return exitError(exitRuntime, "server: %s", err)
		}
		return nil
	}
}

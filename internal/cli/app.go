// Package cli implements the hookbase-mcp command line.
package cli

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/golovatskygroup/hookbase-mcp/internal/config"
	"github.com/golovatskygroup/hookbase-mcp/internal/hookbase"
	"github.com/golovatskygroup/hookbase-mcp/internal/httpcache"
)

// loadSettings merges the config file, the environment and any flags the
// user set explicitly. Flags win.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	path, _ := cmd.Flags().GetString("config")
	s, err := config.Load(path, os.Getenv)
	if err != nil {
		return config.Settings{}, exitError(exitConfig, "%s", err)
	}
	if cmd.Flags().Changed("debug") {
		s.Debug, _ = cmd.Flags().GetBool("debug")
	}
	if cmd.Flags().Changed("strict") {
		s.Strict, _ = cmd.Flags().GetBool("strict")
	}
	if cmd.Flags().Changed("journal") {
		s.JournalPath, _ = cmd.Flags().GetString("journal")
	}
	return s, nil
}

// newLogger writes text logs to w. stdout belongs to the protocol, so w is
// always stderr in practice.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newHTTPClient returns the client every dispatcher shares, optionally
// fronted by the response cache. It has no Timeout: the request context
// bounds each call.
func newHTTPClient(s config.Settings, logger *slog.Logger) *http.Client {
	cacheCfg := httpcache.ConfigFromEnv(httpcache.Config{
		Enabled:    s.HTTPCache.Enabled,
		TTL:        time.Duration(s.HTTPCache.TTLSeconds) * time.Second,
		MaxEntries: s.HTTPCache.MaxEntries,
	})
	if cacheCfg.Enabled {
		logger.Debug("http cache enabled", "ttl", cacheCfg.TTL, "max_entries", cacheCfg.MaxEntries)
	}
	return &http.Client{Transport: httpcache.NewTransport(http.DefaultTransport, cacheCfg)}
}

func clientFactory(s config.Settings, logger *slog.Logger, version string) config.ClientFactory {
	httpClient := newHTTPClient(s, logger)
	return func(baseURL, apiKey string) *hookbase.Client {
		return hookbase.New(baseURL, apiKey,
			hookbase.WithHTTPClient(httpClient),
			hookbase.WithLogger(logger),
			hookbase.WithUserAgent("hookbase-mcp/"+version),
		)
	}
}

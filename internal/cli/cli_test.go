package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golovatskygroup/hookbase-mcp/internal/config"
	"github.com/golovatskygroup/hookbase-mcp/internal/httpcache"
	"github.com/golovatskygroup/hookbase-mcp/internal/journal"
	"github.com/golovatskygroup/hookbase-mcp/internal/telemetry"
)

// executeCommand runs a cobra command with the given args and captures stdout/stderr.
func executeCommand(root *cobra.Command, args ...string) (stdout, stderr string, err error) {
	var outBuf, errBuf bytes.Buffer
	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	err = root.Execute()
	return outBuf.String(), errBuf.String(), err
}

// clearEnv isolates a test from the caller's Hookbase environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		config.EnvAPIKey, config.EnvAPIURL, config.EnvOrgID,
		config.EnvDebug, config.EnvStrict, config.EnvJournalPath,
		telemetry.EnvEndpoint, "HOOKBASE_HTTP_CACHE_ENABLED",
	} {
		t.Setenv(k, "")
	}
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected ExitError, got %v", err)
	assert.Equal(t, code, exitErr.Code)
}

func identityServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, config.IdentityPath, r.URL.Path)
		assert.Equal(t, "Bearer whr_test", r.Header.Get("Authorization"))
		assert.Equal(t, "hookbase-mcp/1.2.3", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVersion(t *testing.T) {
	clearEnv(t)
	out, _, err := executeCommand(NewRootCmd("1.2.3"), "--version")
	require.NoError(t, err)
	assert.Equal(t, "hookbase-mcp 1.2.3\n", out)
}

func TestServeAnswersOverStdio(t *testing.T) {
	clearEnv(t)
	root := NewRootCmd("1.2.3")
	root.SetIn(strings.NewReader(
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}` + "\n" +
			`{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n",
	))

	out, stderr, err := executeCommand(root)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	var init struct {
		Result struct {
			ServerInfo struct {
				Name    string `json:"name"`
				Version string `json:"version"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &init))
	assert.Equal(t, "hookbase-mcp", init.Result.ServerInfo.Name)
	assert.Equal(t, "1.2.3", init.Result.ServerInfo.Version)
	assert.Contains(t, lines[1], "hookbase_list_sources")

	// the missing key is diagnosed on stderr, never on the protocol stream
	assert.Contains(t, stderr, config.EnvAPIKey)
}

func TestServeStrictFlagHidesTools(t *testing.T) {
	clearEnv(t)
	root := NewRootCmd("1.2.3")
	root.SetIn(strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n"))

	out, _, err := executeCommand(root, "serve", "--strict")
	require.NoError(t, err)
	var resp struct {
		Result struct {
			Tools []json.RawMessage `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &resp))
	assert.NotNil(t, resp.Result.Tools)
	assert.Empty(t, resp.Result.Tools)
}

func TestCheckAutoDetectsOrganization(t *testing.T) {
	clearEnv(t)
	api := identityServer(t, http.StatusOK, `{"user":{"id":"usr_1"},"organizations":[{"id":"org_9","name":"Acme"}]}`)
	t.Setenv(config.EnvAPIKey, "whr_test")
	t.Setenv(config.EnvAPIURL, api.URL)

	out, _, err := executeCommand(NewRootCmd("1.2.3"), "check")
	require.NoError(t, err)
	assert.Contains(t, out, "org_9")
	assert.Contains(t, out, api.URL)
}

func TestCheckJSON(t *testing.T) {
	clearEnv(t)
	api := identityServer(t, http.StatusOK, `{"organizations":[{"id":"org_9","name":"Acme"}]}`)
	t.Setenv(config.EnvAPIKey, "whr_test")
	t.Setenv(config.EnvAPIURL, api.URL)

	out, _, err := executeCommand(NewRootCmd("1.2.3"), "check", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"apiUrl":"`+api.URL+`","organizationId":"org_9"}`, out)
}

func TestCheckUsesConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvAPIKey, "whr_test")
	path := filepath.Join(t.TempDir(), "hookbase.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: https://hooks.internal.example\norganization_id: org_file\n"), 0o644))

	out, _, err := executeCommand(NewRootCmd("1.2.3"), "check", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "org_file")
	assert.Contains(t, out, "https://hooks.internal.example")
}

func TestCheckExitCodes(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		clearEnv(t)
		_, _, err := executeCommand(NewRootCmd("1.2.3"), "check")
		requireExitCode(t, err, exitConfig)
		assert.Contains(t, err.Error(), config.EnvAPIKey)
	})

	t.Run("bad prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(config.EnvAPIKey, "sk_live_123")
		_, _, err := executeCommand(NewRootCmd("1.2.3"), "check")
		requireExitCode(t, err, exitConfig)
	})

	t.Run("rejected key", func(t *testing.T) {
		clearEnv(t)
		api := identityServer(t, http.StatusUnauthorized, `{"error":"Invalid API key"}`)
		t.Setenv(config.EnvAPIKey, "whr_test")
		t.Setenv(config.EnvAPIURL, api.URL)
		out, _, err := executeCommand(NewRootCmd("1.2.3"), "check", "--json")
		requireExitCode(t, err, exitAuth)
		assert.Contains(t, out, `"kind": "authentication_failed"`)
	})

	t.Run("unreachable", func(t *testing.T) {
		clearEnv(t)
		api := httptest.NewServer(http.NotFoundHandler())
		api.Close()
		t.Setenv(config.EnvAPIKey, "whr_test")
		t.Setenv(config.EnvAPIURL, api.URL)
		_, _, err := executeCommand(NewRootCmd("1.2.3"), "check")
		requireExitCode(t, err, exitNetwork)
	})

	t.Run("unreadable config", func(t *testing.T) {
		clearEnv(t)
		_, _, err := executeCommand(NewRootCmd("1.2.3"), "check", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
		requireExitCode(t, err, exitConfig)
	})
}

func TestToolsListsEverything(t *testing.T) {
	out, _, err := executeCommand(NewRootCmd("1.2.3"), "tools")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "NAME"))
	assert.Contains(t, out, "hookbase_list_sources")
	assert.Contains(t, out, "hookbase_send_event")
}

func TestToolsSearchJSON(t *testing.T) {
	out, _, err := executeCommand(NewRootCmd("1.2.3"), "tools", "replay", "--category", "deliveries", "--json")
	require.NoError(t, err)

	var hits []struct {
		Name     string `json:"name"`
		Category string `json:"category"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.Equal(t, "deliveries", h.Category)
	}
	names := make([]string, 0, len(hits))
	for _, h := range hits {
		names = append(names, h.Name)
	}
	assert.Contains(t, names, "hookbase_replay_delivery")
	assert.Contains(t, names, "hookbase_bulk_replay_deliveries")
}

func TestToolsUnknownCategory(t *testing.T) {
	_, _, err := executeCommand(NewRootCmd("1.2.3"), "tools", "--category", "nope")
	requireExitCode(t, err, exitConfig)
}

func TestHistory(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := journal.Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Record(context.Background(), journal.Entry{Tool: "hookbase_list_sources", Status: journal.StatusSuccess}))
	require.NoError(t, j.Record(context.Background(), journal.Entry{Tool: "hookbase_get_event", Status: journal.StatusError, Error: "Event not found"}))
	require.NoError(t, j.Close())

	out, _, err := executeCommand(NewRootCmd("1.2.3"), "history", "--journal", path)
	require.NoError(t, err)
	assert.Contains(t, out, "hookbase_list_sources")
	assert.Contains(t, out, "Event not found")

	out, _, err = executeCommand(NewRootCmd("1.2.3"), "history", "--journal", path, "--tool", "hookbase_get_event", "--json")
	require.NoError(t, err)
	var entries []journal.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, journal.StatusError, entries[0].Status)
}

func TestHistoryRequiresJournal(t *testing.T) {
	clearEnv(t)
	_, _, err := executeCommand(NewRootCmd("1.2.3"), "history")
	requireExitCode(t, err, exitConfig)
}

func TestHTTPClientHasNoTimeout(t *testing.T) {
	clearEnv(t)
	logger := newLogger(io.Discard, false)

	plain := newHTTPClient(config.Settings{}, logger)
	assert.Zero(t, plain.Timeout)
	assert.Equal(t, http.DefaultTransport, plain.Transport)

	cached := newHTTPClient(config.Settings{HTTPCache: config.HTTPCacheFile{Enabled: true, TTLSeconds: 30}}, logger)
	assert.Zero(t, cached.Timeout)
	assert.IsType(t, &httpcache.Transport{}, cached.Transport)
}

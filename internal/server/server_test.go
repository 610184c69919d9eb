package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golovatskygroup/hookbase-mcp/internal/config"
	"github.com/golovatskygroup/hookbase-mcp/internal/journal"
)

type fakeAPI struct {
	*httptest.Server
	identityOK atomic.Bool
	apiCalls   atomic.Int64
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	f.identityOK.Store(true)
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == config.IdentityPath:
			if !f.identityOK.Load() {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"error": "Invalid API key"}`)
				return
			}
			_, _ = io.WriteString(w, `{"user": {"id": "usr_1"}, "organizations": [{"id": "org_1", "name": "Acme"}]}`)
		case r.URL.Path == "/api/organizations/org_1/sources":
			f.apiCalls.Add(1)
			if r.URL.Query().Get("search") == "slow" {
				time.Sleep(100 * time.Millisecond)
			}
			_, _ = io.WriteString(w, `{"data": [{"id": "src_1", "name": "Stripe", "slug": "stripe", "is_active": 1}]}`)
		default:
			f.apiCalls.Add(1)
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error": "Not found"}`)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

type session struct {
	t    *testing.T
	in   *io.PipeWriter
	out  *bufio.Scanner
	done chan error
}

func startSession(t *testing.T, settings config.Settings, opts Options) *session {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	srv := New(inR, outW, config.NewResolver(settings, nil, nil), opts)
	done := make(chan error, 1)
	go func() {
		err := srv.Run(context.Background())
		outW.Close()
		done <- err
	}()

	sc := bufio.NewScanner(outR)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	s := &session{t: t, in: inW, out: sc, done: done}
	t.Cleanup(func() {
		inW.Close()
		go func() { _, _ = io.Copy(io.Discard, outR) }()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return s
}

func (s *session) sendRaw(line string) {
	s.t.Helper()
	_, err := io.WriteString(s.in, line+"\n")
	require.NoError(s.t, err)
}

func (s *session) send(id int, method string, params any) {
	s.t.Helper()
	msg := map[string]any{"jsonrpc": "2.0", "id": id, "method": method}
	if params != nil {
		msg["params"] = params
	}
	b, err := json.Marshal(msg)
	require.NoError(s.t, err)
	s.sendRaw(string(b))
}

func (s *session) recv() map[string]any {
	s.t.Helper()
	require.True(s.t, s.out.Scan(), "expected a message from the server")
	var m map[string]any
	require.NoError(s.t, json.Unmarshal(s.out.Bytes(), &m))
	return m
}

func (s *session) call(id int, tool string, args any) map[string]any {
	s.t.Helper()
	s.send(id, "tools/call", map[string]any{"name": tool, "arguments": args})
	return s.recv()
}

func toolText(t *testing.T, resp map[string]any) (string, bool) {
	t.Helper()
	result, ok := resp["result"].(map[string]any)
	require.True(t, ok, "no result in %v", resp)
	content := result["content"].([]any)
	require.Len(t, content, 1)
	isErr, _ := result["isError"].(bool)
	return content[0].(map[string]any)["text"].(string), isErr
}

func toolNames(t *testing.T, resp map[string]any) []string {
	t.Helper()
	list := resp["result"].(map[string]any)["tools"].([]any)
	names := make([]string, 0, len(list))
	for _, tool := range list {
		names = append(names, tool.(map[string]any)["name"].(string))
	}
	return names
}

func TestInitializeAndPing(t *testing.T) {
	s := startSession(t, config.Settings{}, Options{Version: "1.2.3"})

	s.send(1, "initialize", map[string]any{"protocolVersion": protocolVersion})
	resp := s.recv()
	result := resp["result"].(map[string]any)
	assert.Equal(t, protocolVersion, result["protocolVersion"])
	assert.Equal(t, "1.2.3", result["serverInfo"].(map[string]any)["version"])
	caps := result["capabilities"].(map[string]any)
	assert.Contains(t, caps, "tools")
	assert.Contains(t, caps, "prompts")
	assert.Contains(t, result["instructions"], "sources")

	s.sendRaw(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	s.send(2, "ping", nil)
	resp = s.recv()
	assert.EqualValues(t, 2, resp["id"])
	assert.Equal(t, map[string]any{}, resp["result"])
}

func TestUnknownMethodAndMalformedLine(t *testing.T) {
	s := startSession(t, config.Settings{}, Options{})

	s.send(1, "resources/list", nil)
	resp := s.recv()
	assert.EqualValues(t, -32601, resp["error"].(map[string]any)["code"])

	s.sendRaw(`{not json`)
	resp = s.recv()
	assert.EqualValues(t, -32700, resp["error"].(map[string]any)["code"])
	assert.Nil(t, resp["id"])

	s.send(2, "ping", nil)
	assert.EqualValues(t, 2, s.recv()["id"])
}

func TestLenientModeAdvertisesToolsAndDiagnosesCalls(t *testing.T) {
	api := newFakeAPI(t)
	s := startSession(t, config.Settings{APIURL: api.URL}, Options{})

	s.send(1, "tools/list", nil)
	names := toolNames(t, s.recv())
	assert.Contains(t, names, "hookbase_list_sources")
	assert.Greater(t, len(names), 50)

	text, isErr := toolText(t, s.call(2, "hookbase_list_sources", map[string]any{}))
	assert.True(t, isErr)
	assert.Contains(t, text, config.EnvAPIKey)
	assert.EqualValues(t, 0, api.apiCalls.Load())
}

func TestStrictModeHidesToolsUntilResolved(t *testing.T) {
	api := newFakeAPI(t)
	api.identityOK.Store(false)
	s := startSession(t, config.Settings{APIKey: "whr_test", APIURL: api.URL}, Options{Strict: true})

	s.send(1, "initialize", nil)
	caps := s.recv()["result"].(map[string]any)["capabilities"].(map[string]any)
	assert.Equal(t, true, caps["tools"].(map[string]any)["listChanged"])

	s.send(2, "tools/list", nil)
	assert.Empty(t, toolNames(t, s.recv()))

	text, isErr := toolText(t, s.call(3, "hookbase_list_sources", map[string]any{}))
	assert.True(t, isErr)
	assert.Contains(t, text, "Invalid API key")

	api.identityOK.Store(true)
	s.send(4, "tools/call", map[string]any{"name": "hookbase_list_sources", "arguments": map[string]any{}})
	note := s.recv()
	assert.Equal(t, "notifications/tools/list_changed", note["method"])
	text, isErr = toolText(t, s.recv())
	assert.False(t, isErr, text)
	assert.Contains(t, text, `"isActive": true`)

	s.send(5, "tools/list", nil)
	assert.NotEmpty(t, toolNames(t, s.recv()))
}

func TestStrictModeSkipsNotificationAfterFullList(t *testing.T) {
	api := newFakeAPI(t)
	api.identityOK.Store(false)
	s := startSession(t, config.Settings{APIKey: "whr_test", APIURL: api.URL}, Options{Strict: true})

	s.send(1, "tools/list", nil)
	assert.Empty(t, toolNames(t, s.recv()))

	api.identityOK.Store(true)
	s.send(2, "tools/list", nil)
	assert.NotEmpty(t, toolNames(t, s.recv()))

	resp := s.call(3, "hookbase_list_sources", map[string]any{})
	assert.Nil(t, resp["method"], "unexpected notification %v", resp)
	assert.EqualValues(t, 3, resp["id"])
	_, isErr := toolText(t, resp)
	assert.False(t, isErr)
}

func TestToolCallFailuresAreToolErrors(t *testing.T) {
	api := newFakeAPI(t)
	s := startSession(t, config.Settings{APIKey: "whr_test", APIURL: api.URL}, Options{})

	text, isErr := toolText(t, s.call(1, "hookbase_list_sorces", map[string]any{}))
	assert.True(t, isErr)
	assert.Contains(t, text, "Unknown tool")
	assert.Contains(t, text, "hookbase_list_sources")

	text, isErr = toolText(t, s.call(2, "hookbase_list_sources", map[string]any{"pageSize": 5}))
	assert.True(t, isErr)
	assert.Contains(t, text, "invalid arguments")

	text, isErr = toolText(t, s.call(3, "hookbase_get_source", map[string]any{"source_id": "src_x"}))
	assert.True(t, isErr)
	assert.JSONEq(t, `{"error": "Not found"}`, text)

	assert.EqualValues(t, 1, api.apiCalls.Load())

	s.send(4, "tools/call", "not an object")
	assert.EqualValues(t, -32602, s.recv()["error"].(map[string]any)["code"])
}

func TestConcurrentCallsAllAnswered(t *testing.T) {
	api := newFakeAPI(t)
	s := startSession(t, config.Settings{APIKey: "whr_test", APIURL: api.URL}, Options{})

	for id := 1; id <= 4; id++ {
		s.send(id, "tools/call", map[string]any{"name": "hookbase_list_sources", "arguments": map[string]any{"search": "slow"}})
	}
	seen := map[float64]bool{}
	for i := 0; i < 4; i++ {
		resp := s.recv()
		_, isErr := toolText(t, resp)
		assert.False(t, isErr)
		seen[resp["id"].(float64)] = true
	}
	assert.Len(t, seen, 4)
	assert.EqualValues(t, 4, api.apiCalls.Load())
}

func TestEOFWaitsForInFlightCalls(t *testing.T) {
	api := newFakeAPI(t)
	s := startSession(t, config.Settings{APIKey: "whr_test", APIURL: api.URL}, Options{})

	s.send(1, "tools/call", map[string]any{"name": "hookbase_list_sources", "arguments": map[string]any{"search": "slow"}})
	require.NoError(t, s.in.Close())

	resp := s.recv()
	assert.EqualValues(t, 1, resp["id"])
	assert.NoError(t, <-s.done)
	s.done <- nil
}

func TestPrompts(t *testing.T) {
	s := startSession(t, config.Settings{}, Options{})

	s.send(1, "prompts/list", nil)
	list := s.recv()["result"].(map[string]any)["prompts"].([]any)
	assert.Len(t, list, 4)

	s.send(2, "prompts/get", map[string]any{"name": "setup_webhook_source", "arguments": map[string]any{}})
	assert.EqualValues(t, -32602, s.recv()["error"].(map[string]any)["code"])

	s.send(3, "prompts/get", map[string]any{"name": "setup_webhook_source", "arguments": map[string]any{"provider": "github"}})
	msgs := s.recv()["result"].(map[string]any)["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].(map[string]any)["content"].(map[string]any)["text"], "github")
}

func TestCallsAreJournaled(t *testing.T) {
	api := newFakeAPI(t)
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	s := startSession(t, config.Settings{APIKey: "whr_test", APIURL: api.URL}, Options{Journal: j})
	_, isErr := toolText(t, s.call(1, "hookbase_list_sources", map[string]any{}))
	require.False(t, isErr)
	_, isErr = toolText(t, s.call(2, "hookbase_get_source", map[string]any{"source_id": "nope"}))
	require.True(t, isErr)

	entries, err := j.Recent(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	statuses := []string{entries[0].Status, entries[1].Status}
	assert.ElementsMatch(t, []string{journal.StatusSuccess, journal.StatusError}, statuses)
	for _, e := range entries {
		assert.True(t, strings.HasPrefix(e.Tool, "hookbase_"))
	}
}

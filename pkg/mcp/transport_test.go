package mcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportReadMessage(t *testing.T) {
	in := strings.NewReader("\n{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"ping\"}\nnot json\n{\"jsonrpc\":\"2.0\",\"method\":\"notifications/initialized\"}\n")
	tr := NewTransport(in, io.Discard)

	req, err := tr.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "ping", req.Method)
	assert.False(t, req.IsNotification())

	_, err = tr.ReadMessage()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))

	req, err = tr.ReadMessage()
	require.NoError(t, err)
	assert.True(t, req.IsNotification())

	_, err = tr.ReadMessage()
	assert.Equal(t, io.EOF, err)
}

func TestTransportWritesOneMessagePerLine(t *testing.T) {
	var out bytes.Buffer
	tr := NewTransport(strings.NewReader(""), &out)

	resp, err := NewResponse(json.RawMessage(`7`), map[string]any{"ok": true})
	require.NoError(t, err)
	require.NoError(t, tr.WriteResponse(resp))
	require.NoError(t, tr.WriteNotification("notifications/tools/list_changed", nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":7,"result":{"ok":true}}`, lines[0])
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"notifications/tools/list_changed"}`, lines[1])
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(json.RawMessage(`"a"`), MethodNotFound, "Method not found: x")
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"a","error":{"code":-32601,"message":"Method not found: x"}}`, string(b))
}

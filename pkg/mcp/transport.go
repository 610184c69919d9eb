package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrMalformed wraps lines that are not valid JSON-RPC messages.
var ErrMalformed = errors.New("malformed message")

// Transport handles MCP communication over stdio: one JSON-RPC message per line.
type Transport struct {
	reader *bufio.Reader
	writer io.Writer
	mu     sync.Mutex
}

// NewTransport creates a new stdio transport
func NewTransport(r io.Reader, w io.Writer) *Transport {
	return &Transport{
		reader: bufio.NewReader(r),
		writer: w,
	}
}

// ReadMessage reads the next JSON-RPC message. Blank lines are skipped.
// A line that fails to parse yields an error wrapping ErrMalformed; the
// caller may keep reading after it.
func (t *Transport) ReadMessage() (*Request, error) {
	for {
		line, err := t.reader.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if err != nil {
				return nil, err
			}
			continue
		}

		var req Request
		if uerr := json.Unmarshal(line, &req); uerr != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, uerr)
		}
		return &req, nil
	}
}

// WriteResponse writes a JSON-RPC response to stdout
func (t *Transport) WriteResponse(resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return t.writeLine(data)
}

// WriteNotification writes a JSON-RPC notification
func (t *Transport) WriteNotification(method string, params any) error {
	var paramsData json.RawMessage
	if params != nil {
		var err error
		paramsData, err = json.Marshal(params)
		if err != nil {
			return err
		}
	}

	data, err := json.Marshal(Notification{
		JSONRPC: "2.0",
		Method:  method,
		Params:  paramsData,
	})
	if err != nil {
		return err
	}
	return t.writeLine(data)
}

func (t *Transport) writeLine(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.writer, "%s\n", data)
	return err
}

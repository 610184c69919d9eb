// Package hookbase is the single HTTP entry point to the Hookbase REST API.
//
// Every call goes through Client.Dispatch, which authenticates, encodes,
// performs exactly one round-trip and normalizes the outcome into a Response.
// There is no retry or backoff here; replays are explicit remote operations.
package hookbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.hookbase.app"

const tracerName = "github.com/golovatskygroup/hookbase-mcp/internal/hookbase"

// Client dispatches authenticated JSON requests.
type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	http      *http.Client
	tracer    trace.Tracer
	logger    *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client (which has no timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(cl *Client) {
		if t != nil {
			cl.tracer = t
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		if strings.TrimSpace(ua) != "" {
			cl.userAgent = ua
		}
	}
}

// New creates a client for baseURL (DefaultBaseURL when empty).
func New(baseURL, apiKey string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		userAgent: "hookbase-mcp/dev",
		http:      &http.Client{},
		tracer:    otel.Tracer(tracerName),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Dispatch performs one request against <baseURL><path>. body, when non-nil,
// is JSON-encoded. The returned Response carries either Data or Error.
func (c *Client) Dispatch(ctx context.Context, method, path string, body any) Response {
	ctx, span := c.tracer.Start(ctx, "hookbase.dispatch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("hookbase.path", path),
		),
	)
	defer span.End()

	start := time.Now()
	resp := c.roundTrip(ctx, method, path, body)

	span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))
	if !resp.OK() {
		span.SetStatus(codes.Error, resp.Error)
	}
	c.logger.DebugContext(ctx, "hookbase request",
		"method", method,
		"path", path,
		"status", resp.Status,
		"duration", time.Since(start),
		"error", resp.Error,
	)
	return resp
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any) Response {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return failure(0, fmt.Sprintf("encode request body: %v", err))
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return failure(0, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())

	httpResp, err := c.http.Do(req)
	if err != nil {
		return failure(0, err.Error())
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return failure(0, err.Error())
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return failure(httpResp.StatusCode, errorMessage(raw))
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Response{Status: httpResp.StatusCode, Data: json.RawMessage("null")}
	}
	if !json.Valid(raw) {
		return failure(0, fmt.Sprintf("invalid JSON in response (HTTP %d)", httpResp.StatusCode))
	}
	return Response{Status: httpResp.StatusCode, Data: json.RawMessage(raw)}
}

// errorMessage extracts the server's error text from a failed response body.
func errorMessage(raw []byte) string {
	var body struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		switch e := body.Error.(type) {
		case string:
			if strings.TrimSpace(e) != "" {
				return e
			}
		case map[string]any:
			if m, ok := e["message"].(string); ok && strings.TrimSpace(m) != "" {
				return m
			}
		}
		if strings.TrimSpace(body.Message) != "" {
			return body.Message
		}
	}
	return "Request failed"
}

// Do dispatches and decodes a successful payload into T.
func Do[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var out T
	resp := c.Dispatch(ctx, method, path, body)
	if err := resp.Err(); err != nil {
		return out, err
	}
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return out, &APIError{Status: resp.Status, Message: fmt.Sprintf("unexpected response shape: %v", err)}
	}
	return out, nil
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

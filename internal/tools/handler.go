// Package tools implements the Hookbase tools: each maps declared snake_case
// arguments onto one API request and reshapes the response into a stable,
// camelCase output view.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/golovatskygroup/hookbase-mcp/internal/config"
	"github.com/golovatskygroup/hookbase-mcp/internal/hookbase"
	"github.com/golovatskygroup/hookbase-mcp/internal/registry"
	"github.com/golovatskygroup/hookbase-mcp/pkg/mcp"
)

// Handler executes tool calls against one resolved organization.
type Handler struct {
	api *hookbase.Client
	cfg config.Config
}

// NewHandler binds a dispatcher to a resolved configuration.
func NewHandler(api *hookbase.Client, cfg config.Config) *Handler {
	return &Handler{api: api, cfg: cfg}
}

type runFunc func(h *Handler, ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error)

type toolDef struct {
	tool mcp.Tool
	run  runFunc
}

type group struct {
	category registry.Category
	tools    func() []toolDef
}

var groups = []group{
	{registry.Category{Name: "sources", Description: "Inbound webhook intake endpoints", Keywords: []string{"source", "ingest", "provider", "inbound"}}, sourceTools},
	{registry.Category{Name: "destinations", Description: "Forwarding targets for inbound webhooks", Keywords: []string{"destination", "target", "forward"}}, destinationTools},
	{registry.Category{Name: "routes", Description: "Source to destination bindings with filters and transforms", Keywords: []string{"route", "filter", "transform"}}, routeTools},
	{registry.Category{Name: "events", Description: "Received inbound webhooks", Keywords: []string{"event", "payload", "debug", "curl"}}, eventTools},
	{registry.Category{Name: "deliveries", Description: "Forwarding attempts and replays", Keywords: []string{"delivery", "replay", "retry", "failed"}}, deliveryTools},
	{registry.Category{Name: "tunnels", Description: "Relays to local development servers", Keywords: []string{"tunnel", "local", "localhost"}}, tunnelTools},
	{registry.Category{Name: "cron", Description: "Scheduled outbound HTTP jobs", Keywords: []string{"cron", "schedule", "job", "trigger"}}, cronTools},
	{registry.Category{Name: "analytics", Description: "Dashboard metrics", Keywords: []string{"analytics", "metrics", "stats", "dashboard"}}, analyticsTools},
	{registry.Category{Name: "applications", Description: "Outbound webhook customers", Keywords: []string{"application", "customer", "tenant"}}, applicationTools},
	{registry.Category{Name: "endpoints", Description: "Outbound delivery URLs and circuit breakers", Keywords: []string{"endpoint", "secret", "circuit", "rotate"}}, endpointTools},
	{registry.Category{Name: "subscriptions", Description: "Endpoint to event type bindings", Keywords: []string{"subscription", "subscribe"}}, subscriptionTools},
	{registry.Category{Name: "event_types", Description: "Named outbound event schemas", Keywords: []string{"event type", "schema", "catalog"}}, eventTypeTools},
	{registry.Category{Name: "messages", Description: "Outbound sends, messages and attempts", Keywords: []string{"send", "message", "attempt", "outbound"}}, messageTools},
}

var runners = func() map[string]runFunc {
	m := map[string]runFunc{}
	for _, g := range groups {
		for _, d := range g.tools() {
			m[d.tool.Name] = d.run
		}
	}
	return m
}()

// Register adds every Hookbase tool to reg, grouped by category.
func Register(reg *registry.Registry) {
	for _, g := range groups {
		defs := g.tools()
		tools := make([]mcp.Tool, 0, len(defs))
		for _, d := range defs {
			tools = append(tools, d.tool)
		}
		reg.Register(g.category, tools...)
	}
}

// Handles reports whether name is a known tool.
func Handles(name string) bool {
	_, ok := runners[name]
	return ok
}

// Handle runs a tool. API and decoding failures come back as error results;
// the returned error is reserved for unknown tool names.
func (h *Handler) Handle(ctx context.Context, name string, args json.RawMessage) (*mcp.CallToolResult, error) {
	run, ok := runners[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	res, err := run(h, ctx, args)
	if err != nil {
		return ErrorResult(err.Error()), nil
	}
	return res, nil
}

func (h *Handler) path(format string, ids ...string) string {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = url.PathEscape(id)
	}
	return h.cfg.OrgPath(fmt.Sprintf(format, args...))
}

// ErrorResult is the tool-level error shape: {"error": msg} with isError set.
func ErrorResult(msg string) *mcp.CallToolResult {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: "text", Text: string(b)}}, IsError: true}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: "text", Text: text}}}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return textResult(string(b)), nil
}

// bind decodes tool arguments; empty arguments decode as {}.
func bind(args json.RawMessage, v any) error {
	if len(strings.TrimSpace(string(args))) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

type pageInput struct {
	Page     int `json:"page,omitempty"`
	PageSize int `json:"page_size,omitempty"`
}

func (p pageInput) apply(q url.Values) {
	setInt(q, "page", p.Page)
	setInt(q, "pageSize", p.PageSize)
}

const pageProps = `"page": {"type": "integer", "minimum": 1, "description": "Page number (default: 1)"},
	"page_size": {"type": "integer", "minimum": 1, "maximum": 100, "description": "Items per page (default: 20, max: 100)"}`

func setString(q url.Values, key, v string) {
	if v = strings.TrimSpace(v); v != "" {
		q.Set(key, v)
	}
}

func setInt(q url.Values, key string, v int) {
	if v > 0 {
		q.Set(key, strconv.Itoa(v))
	}
}

func setBool(q url.Values, key string, v *bool) {
	if v != nil {
		q.Set(key, strconv.FormatBool(*v))
	}
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

type deletedView struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

func list[R, V any](ctx context.Context, h *Handler, path string, q url.Values, key string, view func(R) V) (*mcp.CallToolResult, error) {
	page, err := hookbase.Do[hookbase.Page[R]](ctx, h.api, http.MethodGet, withQuery(path, q), nil)
	if err != nil {
		return nil, err
	}
	items := make([]V, 0, len(page.Data))
	for _, r := range page.Data {
		items = append(items, view(r))
	}
	out := map[string]any{key: items, "count": len(items)}
	if page.Pagination != nil {
		out["pagination"] = page.Pagination
	}
	return jsonResult(out)
}

func one[R, V any](ctx context.Context, h *Handler, method, path string, body any, view func(R) V) (*mcp.CallToolResult, error) {
	rec, err := hookbase.Do[R](ctx, h.api, method, path, body)
	if err != nil {
		return nil, err
	}
	return jsonResult(view(rec))
}

func remove(ctx context.Context, h *Handler, path, id string) (*mcp.CallToolResult, error) {
	if err := h.api.Dispatch(ctx, http.MethodDelete, path, nil).Err(); err != nil {
		return nil, err
	}
	return jsonResult(deletedView{Deleted: true, ID: id})
}

// idSchema is the argument shape shared by get/delete tools.
func idSchema(key, desc string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
		"type": "object",
		"properties": {%q: {"type": "string", "minLength": 1, "description": %q}},
		"required": [%q],
		"additionalProperties": false
	}`, key, desc, key))
}

func idArg(args json.RawMessage, key string) (string, error) {
	var m map[string]json.RawMessage
	if err := bind(args, &m); err != nil {
		return "", err
	}
	var id string
	if raw, ok := m[key]; ok {
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", fmt.Errorf("invalid arguments: %s must be a string", key)
		}
	}
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return id, nil
}

func identity[T any](v T) T { return v }

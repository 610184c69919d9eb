package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/golovatskygroup/hookbase-mcp/internal/hookbase"
	"github.com/golovatskygroup/hookbase-mcp/pkg/mcp"
)

type destinationView struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
	TimeoutMS int               `json:"timeoutMs,omitempty"`
	AuthType  string            `json:"authType,omitempty"`
	IsActive  bool              `json:"isActive"`
	CreatedAt string            `json:"createdAt,omitempty"`
	UpdatedAt string            `json:"updatedAt,omitempty"`
}

func toDestinationView(d hookbase.Destination) destinationView {
	method := d.Method
	if method == "" {
		method = http.MethodPost
	}
	return destinationView{
		ID:        d.ID,
		Name:      d.Name,
		URL:       d.URL,
		Method:    method,
		Headers:   d.Headers,
		TimeoutMS: d.TimeoutMS,
		AuthType:  d.AuthType,
		IsActive:  bool(d.IsActive),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

const destinationProps = `
	"url": {"type": "string", "format": "uri", "description": "Target URL"},
	"method": {"type": "string", "enum": ["POST", "PUT", "PATCH", "GET", "DELETE"]},
	"headers": {"type": "object", "additionalProperties": {"type": "string"}, "description": "Extra request headers"},
	"timeout_ms": {"type": "integer", "minimum": 1000, "maximum": 60000},
	"auth_type": {"type": "string", "enum": ["none", "basic", "bearer", "api_key"]}`

func destinationTools() []toolDef {
	return []toolDef{
		{
			tool: mcp.Tool{
				Name:        "hookbase_list_destinations",
				Description: "List destinations that inbound webhooks are forwarded to.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						` + pageProps + `,
						"search": {"type": "string"},
						"enabled": {"type": "boolean"}
					},
					"additionalProperties": false
				}`),
			},
			run: (*Handler).listDestinations,
		},
		{
			tool: mcp.Tool{Name: "hookbase_get_destination", Description: "Get a single destination.", InputSchema: idSchema("destination_id", "Destination ID")},
			run:  (*Handler).getDestination,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_create_destination",
				Description: "Create a forwarding destination for inbound webhooks.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"name": {"type": "string", "minLength": 1},` + destinationProps + `
					},
					"required": ["name", "url"],
					"additionalProperties": false
				}`),
			},
			run: (*Handler).createDestination,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_update_destination",
				Description: "Update a destination's target, headers, timeout or enabled state.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"destination_id": {"type": "string", "minLength": 1},
						"name": {"type": "string", "minLength": 1},
						"enabled": {"type": "boolean"},` + destinationProps + `
					},
					"required": ["destination_id"],
					"additionalProperties": false
				}`),
			},
			run: (*Handler).updateDestination,
		},
		{
			tool: mcp.Tool{Name: "hookbase_delete_destination", Description: "Delete a destination.", InputSchema: idSchema("destination_id", "Destination ID")},
			run:  (*Handler).deleteDestination,
		},
	}
}

type destinationInput struct {
	Name      *string           `json:"name"`
	URL       *string           `json:"url"`
	Method    *string           `json:"method"`
	Headers   map[string]string `json:"headers"`
	TimeoutMS *int              `json:"timeout_ms"`
	AuthType  *string           `json:"auth_type"`
}

func (in destinationInput) body() map[string]any {
	body := map[string]any{}
	putStringPtr(body, "name", in.Name)
	putStringPtr(body, "url", in.URL)
	putStringPtr(body, "method", in.Method)
	if in.Headers != nil {
		body["headers"] = in.Headers
	}
	putInt(body, "timeoutMs", in.TimeoutMS)
	putStringPtr(body, "authType", in.AuthType)
	return body
}

func (h *Handler) listDestinations(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		pageInput
		Search  string `json:"search"`
		Enabled *bool  `json:"enabled"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	q := url.Values{}
	in.apply(q)
	setString(q, "search", in.Search)
	setBool(q, "isActive", in.Enabled)
	return list(ctx, h, h.path("/destinations"), q, "destinations", toDestinationView)
}

func (h *Handler) getDestination(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "destination_id")
	if err != nil {
		return nil, err
	}
	return one(ctx, h, http.MethodGet, h.path("/destinations/%s", id), nil, toDestinationView)
}

func (h *Handler) createDestination(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in destinationInput
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	if in.Name == nil || *in.Name == "" || in.URL == nil || *in.URL == "" {
		return nil, errors.New("name and url are required")
	}
	return one(ctx, h, http.MethodPost, h.path("/destinations"), in.body(), toDestinationView)
}

func (h *Handler) updateDestination(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		destinationInput
		DestinationID string `json:"destination_id"`
		Enabled       *bool  `json:"enabled"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	if in.DestinationID == "" {
		return nil, errors.New("destination_id is required")
	}
	body := in.body()
	putBool(body, "isActive", in.Enabled)
	if len(body) == 0 {
		return nil, errNoChanges
	}
	return one(ctx, h, http.MethodPatch, h.path("/destinations/%s", in.DestinationID), body, toDestinationView)
}

func (h *Handler) deleteDestination(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "destination_id")
	if err != nil {
		return nil, err
	}
	return remove(ctx, h, h.path("/destinations/%s", id), id)
}

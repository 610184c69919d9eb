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

type endpointView struct {
	ID            string      `json:"id"`
	ApplicationID string      `json:"applicationId"`
	URL           string      `json:"url"`
	Description   string      `json:"description,omitempty"`
	Enabled       bool        `json:"enabled"`
	RateLimit     int         `json:"rateLimit,omitempty"`
	Circuit       circuitView `json:"circuit"`
	EventTypes    []string    `json:"eventTypes"`
	CreatedAt     string      `json:"createdAt,omitempty"`
}

type circuitView struct {
	State        string `json:"state"`
	FailureCount int    `json:"failureCount"`
	OpenedAt     string `json:"openedAt,omitempty"`
}

// The API stores the negative flag; tools expose the positive one.
func toEndpointView(e hookbase.Endpoint) endpointView {
	v := endpointView{
		ID:            e.ID,
		ApplicationID: e.ApplicationID,
		URL:           e.URL,
		Description:   e.Description,
		Enabled:       !bool(e.IsDisabled),
		RateLimit:     e.RateLimit,
		Circuit: circuitView{
			State:        e.CircuitState,
			FailureCount: e.CircuitFailureCount,
			OpenedAt:     e.CircuitOpenedAt,
		},
		EventTypes: e.EventTypes,
		CreatedAt:  e.CreatedAt,
	}
	if v.Circuit.State == "" {
		v.Circuit.State = "closed"
	}
	if v.EventTypes == nil {
		v.EventTypes = []string{}
	}
	return v
}

const endpointProps = `
	"url": {"type": "string", "description": "HTTPS URL receiving webhooks"},
	"description": {"type": "string"},
	"enabled": {"type": "boolean", "description": "Whether the endpoint receives messages (default: true)"},
	"rate_limit": {"type": "integer", "minimum": 1, "description": "Max deliveries per second"}`

func endpointTools() []toolDef {
	return []toolDef{
		{
			tool: mcp.Tool{
				Name:        "hookbase_list_endpoints",
				Description: "List outbound webhook endpoints with their circuit breaker state.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						` + pageProps + `,
						"application_id": {"type": "string"}
					},
					"additionalProperties": false
				}`),
			},
			run: (*Handler).listEndpoints,
		},
		{
			tool: mcp.Tool{Name: "hookbase_get_endpoint", Description: "Get an outbound webhook endpoint.", InputSchema: idSchema("endpoint_id", "Endpoint ID")},
			run:  (*Handler).getEndpoint,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_create_endpoint",
				Description: "Register a URL of an application's customer to receive outbound webhooks.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"application_id": {"type": "string", "minLength": 1},` + endpointProps + `
					},
					"required": ["application_id", "url"],
					"additionalProperties": false
				}`),
			},
			run: (*Handler).createEndpoint,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_update_endpoint",
				Description: "Update an endpoint's URL, description, rate limit or enabled state.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"endpoint_id": {"type": "string", "minLength": 1},` + endpointProps + `
					},
					"required": ["endpoint_id"],
					"additionalProperties": false
				}`),
			},
			run: (*Handler).updateEndpoint,
		},
		{
			tool: mcp.Tool{Name: "hookbase_delete_endpoint", Description: "Delete an outbound webhook endpoint.", InputSchema: idSchema("endpoint_id", "Endpoint ID")},
			run:  (*Handler).deleteEndpoint,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_rotate_endpoint_secret",
				Description: "Generate a new signing secret for an endpoint. The new secret is returned once; share it with the receiver.",
				InputSchema: idSchema("endpoint_id", "Endpoint ID"),
			},
			run: (*Handler).rotateEndpointSecret,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_reset_endpoint_circuit",
				Description: "Close an endpoint's open circuit breaker so deliveries resume.",
				InputSchema: idSchema("endpoint_id", "Endpoint ID"),
			},
			run: (*Handler).resetEndpointCircuit,
		},
	}
}

type endpointInput struct {
	URL         *string `json:"url"`
	Description *string `json:"description"`
	Enabled     *bool   `json:"enabled"`
	RateLimit   *int    `json:"rate_limit"`
}

func (in endpointInput) body() map[string]any {
	body := map[string]any{}
	putStringPtr(body, "url", in.URL)
	putStringPtr(body, "description", in.Description)
	if in.Enabled != nil {
		body["isDisabled"] = !*in.Enabled
	}
	putInt(body, "rateLimit", in.RateLimit)
	return body
}

func (h *Handler) listEndpoints(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		pageInput
		ApplicationID string `json:"application_id"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	q := url.Values{}
	in.apply(q)
	setString(q, "applicationId", in.ApplicationID)
	return list(ctx, h, h.path("/webhook-endpoints"), q, "endpoints", toEndpointView)
}

func (h *Handler) getEndpoint(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "endpoint_id")
	if err != nil {
		return nil, err
	}
	return one(ctx, h, http.MethodGet, h.path("/webhook-endpoints/%s", id), nil, toEndpointView)
}

func (h *Handler) createEndpoint(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		endpointInput
		ApplicationID string `json:"application_id"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	if in.ApplicationID == "" || in.URL == nil || *in.URL == "" {
		return nil, errors.New("application_id and url are required")
	}
	body := in.body()
	body["applicationId"] = in.ApplicationID
	return one(ctx, h, http.MethodPost, h.path("/webhook-endpoints"), body, toEndpointView)
}

func (h *Handler) updateEndpoint(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		endpointInput
		EndpointID string `json:"endpoint_id"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	if in.EndpointID == "" {
		return nil, errors.New("endpoint_id is required")
	}
	body := in.body()
	if len(body) == 0 {
		return nil, errNoChanges
	}
	return one(ctx, h, http.MethodPatch, h.path("/webhook-endpoints/%s", in.EndpointID), body, toEndpointView)
}

func (h *Handler) deleteEndpoint(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "endpoint_id")
	if err != nil {
		return nil, err
	}
	return remove(ctx, h, h.path("/webhook-endpoints/%s", id), id)
}

func (h *Handler) rotateEndpointSecret(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "endpoint_id")
	if err != nil {
		return nil, err
	}
	return one(ctx, h, http.MethodPost, h.path("/webhook-endpoints/%s/rotate-secret", id), nil, identity[hookbase.EndpointSecret])
}

func (h *Handler) resetEndpointCircuit(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "endpoint_id")
	if err != nil {
		return nil, err
	}
	res := h.api.Dispatch(ctx, http.MethodPost, h.path("/webhook-endpoints/%s/reset-circuit", id), nil)
	if err := res.Err(); err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"endpointId": id, "circuit": circuitView{State: "closed"}})
}

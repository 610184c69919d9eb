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

type eventTypeView struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	DisplayName string          `json:"displayName,omitempty"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Schema      json.RawMessage `json:"schema,omitempty"`
	Deprecated  bool            `json:"deprecated"`
	CreatedAt   string          `json:"createdAt,omitempty"`
}

func toEventTypeView(e hookbase.EventType) eventTypeView {
	v := eventTypeView{
		ID:          e.ID,
		Name:        e.Name,
		DisplayName: e.DisplayName,
		Description: e.Description,
		Category:    e.Category,
		Deprecated:  bool(e.IsDeprecated),
		CreatedAt:   e.CreatedAt,
	}
	if len(e.Schema) > 0 && string(e.Schema) != "null" {
		v.Schema = e.Schema
	}
	return v
}

const eventTypeProps = `
	"display_name": {"type": "string"},
	"description": {"type": "string"},
	"category": {"type": "string"},
	"schema": {"type": "object", "description": "JSON Schema describing the payload"}`

func eventTypeTools() []toolDef {
	return []toolDef{
		{
			tool: mcp.Tool{
				Name:        "hookbase_list_event_types",
				Description: "List the outbound event types your applications can subscribe to.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						` + pageProps + `,
						"category": {"type": "string"},
						"include_deprecated": {"type": "boolean"}
					},
					"additionalProperties": false
				}`),
			},
			run: (*Handler).listEventTypes,
		},
		{
			tool: mcp.Tool{Name: "hookbase_get_event_type", Description: "Get an event type with its payload schema.", InputSchema: idSchema("event_type_id", "Event type ID")},
			run:  (*Handler).getEventType,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_create_event_type",
				Description: "Define a new outbound event type, e.g. order.created.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"name": {"type": "string", "pattern": "^[a-zA-Z0-9_.-]+$", "description": "Dotted event name, e.g. order.created"},` + eventTypeProps + `
					},
					"required": ["name"],
					"additionalProperties": false
				}`),
			},
			run: (*Handler).createEventType,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_update_event_type",
				Description: "Update an event type's metadata or schema, or mark it deprecated.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"event_type_id": {"type": "string", "minLength": 1},` + eventTypeProps + `,
						"deprecated": {"type": "boolean"}
					},
					"required": ["event_type_id"],
					"additionalProperties": false
				}`),
			},
			run: (*Handler).updateEventType,
		},
		{
			tool: mcp.Tool{Name: "hookbase_delete_event_type", Description: "Delete an event type.", InputSchema: idSchema("event_type_id", "Event type ID")},
			run:  (*Handler).deleteEventType,
		},
	}
}

type eventTypeInput struct {
	DisplayName *string         `json:"display_name"`
	Description *string         `json:"description"`
	Category    *string         `json:"category"`
	Schema      json.RawMessage `json:"schema"`
}

func (in eventTypeInput) body() map[string]any {
	body := map[string]any{}
	putStringPtr(body, "displayName", in.DisplayName)
	putStringPtr(body, "description", in.Description)
	putStringPtr(body, "category", in.Category)
	putRaw(body, "schema", in.Schema)
	return body
}

func (h *Handler) listEventTypes(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		pageInput
		Category          string `json:"category"`
		IncludeDeprecated *bool  `json:"include_deprecated"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	q := url.Values{}
	in.apply(q)
	setString(q, "category", in.Category)
	setBool(q, "includeDeprecated", in.IncludeDeprecated)
	return list(ctx, h, h.path("/event-types"), q, "eventTypes", toEventTypeView)
}

func (h *Handler) getEventType(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "event_type_id")
	if err != nil {
		return nil, err
	}
	return one(ctx, h, http.MethodGet, h.path("/event-types/%s", id), nil, toEventTypeView)
}

func (h *Handler) createEventType(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		eventTypeInput
		Name string `json:"name"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, errors.New("name is required")
	}
	body := in.body()
	body["name"] = in.Name
	return one(ctx, h, http.MethodPost, h.path("/event-types"), body, toEventTypeView)
}

func (h *Handler) updateEventType(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		eventTypeInput
		EventTypeID string `json:"event_type_id"`
		Deprecated  *bool  `json:"deprecated"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	if in.EventTypeID == "" {
		return nil, errors.New("event_type_id is required")
	}
	body := in.body()
	putBool(body, "isDeprecated", in.Deprecated)
	if len(body) == 0 {
		return nil, errNoChanges
	}
	return one(ctx, h, http.MethodPatch, h.path("/event-types/%s", in.EventTypeID), body, toEventTypeView)
}

func (h *Handler) deleteEventType(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "event_type_id")
	if err != nil {
		return nil, err
	}
	return remove(ctx, h, h.path("/event-types/%s", id), id)
}

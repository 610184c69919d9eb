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

type routeView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	SourceID      string `json:"sourceId"`
	DestinationID string `json:"destinationId"`
	FilterID      string `json:"filterId,omitempty"`
	TransformID   string `json:"transformId,omitempty"`
	Priority      int    `json:"priority"`
	IsActive      bool   `json:"isActive"`
	CreatedAt     string `json:"createdAt,omitempty"`
}

func toRouteView(r hookbase.Route) routeView {
	return routeView{
		ID:            r.ID,
		Name:          r.Name,
		SourceID:      r.SourceID,
		DestinationID: r.DestinationID,
		FilterID:      r.FilterID,
		TransformID:   r.TransformID,
		Priority:      r.Priority,
		IsActive:      bool(r.IsActive),
		CreatedAt:     r.CreatedAt,
	}
}

const routeProps = `
	"filter_id": {"type": "string", "description": "Filter applied before forwarding"},
	"transform_id": {"type": "string", "description": "Transform applied to the payload"},
	"priority": {"type": "integer", "minimum": 0},
	"enabled": {"type": "boolean"}`

func routeTools() []toolDef {
	return []toolDef{
		{
			tool: mcp.Tool{
				Name:        "hookbase_list_routes",
				Description: "List routes connecting sources to destinations.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						` + pageProps + `,
						"source_id": {"type": "string"},
						"destination_id": {"type": "string"}
					},
					"additionalProperties": false
				}`),
			},
			run: (*Handler).listRoutes,
		},
		{
			tool: mcp.Tool{Name: "hookbase_get_route", Description: "Get a single route.", InputSchema: idSchema("route_id", "Route ID")},
			run:  (*Handler).getRoute,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_create_route",
				Description: "Route events from a source to a destination, optionally through a filter and transform.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"name": {"type": "string", "minLength": 1},
						"source_id": {"type": "string", "minLength": 1},
						"destination_id": {"type": "string", "minLength": 1},` + routeProps + `
					},
					"required": ["name", "source_id", "destination_id"],
					"additionalProperties": false
				}`),
			},
			run: (*Handler).createRoute,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_update_route",
				Description: "Update a route's name, filter, transform, priority or enabled state.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"route_id": {"type": "string", "minLength": 1},
						"name": {"type": "string", "minLength": 1},
						"destination_id": {"type": "string", "minLength": 1},` + routeProps + `
					},
					"required": ["route_id"],
					"additionalProperties": false
				}`),
			},
			run: (*Handler).updateRoute,
		},
		{
			tool: mcp.Tool{Name: "hookbase_delete_route", Description: "Delete a route.", InputSchema: idSchema("route_id", "Route ID")},
			run:  (*Handler).deleteRoute,
		},
	}
}

type routeInput struct {
	Name          *string `json:"name"`
	DestinationID *string `json:"destination_id"`
	FilterID      *string `json:"filter_id"`
	TransformID   *string `json:"transform_id"`
	Priority      *int    `json:"priority"`
	Enabled       *bool   `json:"enabled"`
}

func (in routeInput) body() map[string]any {
	body := map[string]any{}
	putStringPtr(body, "name", in.Name)
	putStringPtr(body, "destinationId", in.DestinationID)
	putStringPtr(body, "filterId", in.FilterID)
	putStringPtr(body, "transformId", in.TransformID)
	putInt(body, "priority", in.Priority)
	putBool(body, "isActive", in.Enabled)
	return body
}

func (h *Handler) listRoutes(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		pageInput
		SourceID      string `json:"source_id"`
		DestinationID string `json:"destination_id"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	q := url.Values{}
	in.apply(q)
	setString(q, "sourceId", in.SourceID)
	setString(q, "destinationId", in.DestinationID)
	return list(ctx, h, h.path("/routes"), q, "routes", toRouteView)
}

func (h *Handler) getRoute(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "route_id")
	if err != nil {
		return nil, err
	}
	return one(ctx, h, http.MethodGet, h.path("/routes/%s", id), nil, toRouteView)
}

func (h *Handler) createRoute(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		routeInput
		SourceID string `json:"source_id"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	if in.Name == nil || *in.Name == "" || in.SourceID == "" || in.DestinationID == nil || *in.DestinationID == "" {
		return nil, errors.New("name, source_id and destination_id are required")
	}
	body := in.body()
	body["sourceId"] = in.SourceID
	return one(ctx, h, http.MethodPost, h.path("/routes"), body, toRouteView)
}

func (h *Handler) updateRoute(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		routeInput
		RouteID string `json:"route_id"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	if in.RouteID == "" {
		return nil, errors.New("route_id is required")
	}
	body := in.body()
	if len(body) == 0 {
		return nil, errNoChanges
	}
	return one(ctx, h, http.MethodPatch, h.path("/routes/%s", in.RouteID), body, toRouteView)
}

func (h *Handler) deleteRoute(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "route_id")
	if err != nil {
		return nil, err
	}
	return remove(ctx, h, h.path("/routes/%s", id), id)
}

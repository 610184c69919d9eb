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

type applicationView struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	ExternalID    string          `json:"externalId,omitempty"`
	Description   string          `json:"description,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	EndpointCount int             `json:"endpointCount"`
	CreatedAt     string          `json:"createdAt,omitempty"`
}

func toApplicationView(a hookbase.Application) applicationView {
	v := applicationView{
		ID:            a.ID,
		Name:          a.Name,
		ExternalID:    a.ExternalID,
		Description:   a.Description,
		EndpointCount: a.EndpointCount,
		CreatedAt:     a.CreatedAt,
	}
	if len(a.Metadata) > 0 && string(a.Metadata) != "null" {
		v.Metadata = a.Metadata
	}
	return v
}

const applicationProps = `
	"name": {"type": "string", "minLength": 1},
	"external_id": {"type": "string", "description": "Your own identifier for this customer"},
	"description": {"type": "string"},
	"metadata": {"type": "object", "description": "Arbitrary JSON attached to the application"}`

func applicationTools() []toolDef {
	return []toolDef{
		{
			tool: mcp.Tool{
				Name:        "hookbase_list_applications",
				Description: "List outbound webhook applications (one per customer receiving your webhooks).",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						` + pageProps + `,
						"search": {"type": "string"}
					},
					"additionalProperties": false
				}`),
			},
			run: (*Handler).listApplications,
		},
		{
			tool: mcp.Tool{Name: "hookbase_get_application", Description: "Get an outbound webhook application.", InputSchema: idSchema("application_id", "Application ID")},
			run:  (*Handler).getApplication,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_create_application",
				Description: "Create an outbound webhook application for a customer.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {` + applicationProps + `
					},
					"required": ["name"],
					"additionalProperties": false
				}`),
			},
			run: (*Handler).createApplication,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_update_application",
				Description: "Update an application's name, external id, description or metadata.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"application_id": {"type": "string", "minLength": 1},` + applicationProps + `
					},
					"required": ["application_id"],
					"additionalProperties": false
				}`),
			},
			run: (*Handler).updateApplication,
		},
		{
			tool: mcp.Tool{Name: "hookbase_delete_application", Description: "Delete an application and all of its endpoints.", InputSchema: idSchema("application_id", "Application ID")},
			run:  (*Handler).deleteApplication,
		},
	}
}

type applicationInput struct {
	Name        *string         `json:"name"`
	ExternalID  *string         `json:"external_id"`
	Description *string         `json:"description"`
	Metadata    json.RawMessage `json:"metadata"`
}

func (in applicationInput) body() map[string]any {
	body := map[string]any{}
	putStringPtr(body, "name", in.Name)
	putStringPtr(body, "externalId", in.ExternalID)
	putStringPtr(body, "description", in.Description)
	putRaw(body, "metadata", in.Metadata)
	return body
}

func (h *Handler) listApplications(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		pageInput
		Search string `json:"search"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	q := url.Values{}
	in.apply(q)
	setString(q, "search", in.Search)
	return list(ctx, h, h.path("/webhook-applications"), q, "applications", toApplicationView)
}

func (h *Handler) getApplication(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "application_id")
	if err != nil {
		return nil, err
	}
	return one(ctx, h, http.MethodGet, h.path("/webhook-applications/%s", id), nil, toApplicationView)
}

func (h *Handler) createApplication(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in applicationInput
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	if in.Name == nil || *in.Name == "" {
		return nil, errors.New("name is required")
	}
	return one(ctx, h, http.MethodPost, h.path("/webhook-applications"), in.body(), toApplicationView)
}

func (h *Handler) updateApplication(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		applicationInput
		ApplicationID string `json:"application_id"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	if in.ApplicationID == "" {
		return nil, errors.New("application_id is required")
	}
	body := in.body()
	if len(body) == 0 {
		return nil, errNoChanges
	}
	return one(ctx, h, http.MethodPatch, h.path("/webhook-applications/%s", in.ApplicationID), body, toApplicationView)
}

func (h *Handler) deleteApplication(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "application_id")
	if err != nil {
		return nil, err
	}
	return remove(ctx, h, h.path("/webhook-applications/%s", id), id)
}

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

var errNoChanges = errors.New("at least one field to update is required")

type sourceView struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Slug             string `json:"slug"`
	Provider         string `json:"provider,omitempty"`
	Description      string `json:"description,omitempty"`
	IsActive         bool   `json:"isActive"`
	VerifySignatures bool   `json:"verifySignatures"`
	EventCount       int64  `json:"eventCount"`
	CreatedAt        string `json:"createdAt,omitempty"`
	UpdatedAt        string `json:"updatedAt,omitempty"`
}

func toSourceView(s hookbase.Source) sourceView {
	return sourceView{
		ID:               s.ID,
		Name:             s.Name,
		Slug:             s.Slug,
		Provider:         s.Provider,
		Description:      s.Description,
		IsActive:         bool(s.IsActive),
		VerifySignatures: bool(s.VerifySignatures),
		EventCount:       s.EventCount,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func sourceTools() []toolDef {
	return []toolDef{
		{
			tool: mcp.Tool{
				Name:        "hookbase_list_sources",
				Description: "List inbound webhook sources. Filter by name search, provider, or enabled state.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						` + pageProps + `,
						"search": {"type": "string", "description": "Match on name or slug"},
						"provider": {"type": "string", "description": "Provider such as stripe, github, shopify"},
						"enabled": {"type": "boolean", "description": "Only sources in this state"}
					},
					"additionalProperties": false
				}`),
			},
			run: (*Handler).listSources,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_get_source",
				Description: "Get a single webhook source, including its ingest slug and signature settings.",
				InputSchema: idSchema("source_id", "Source ID"),
			},
			run: (*Handler).getSource,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_create_source",
				Description: "Create an inbound webhook source. The slug becomes part of the ingest URL.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"name": {"type": "string", "minLength": 1},
						"slug": {"type": "string", "description": "URL slug; derived from name when omitted"},
						"provider": {"type": "string", "description": "Provider used for signature verification"},
						"description": {"type": "string"},
						"verify_signatures": {"type": "boolean"},
						"signing_secret": {"type": "string", "description": "Provider signing secret"}
					},
					"required": ["name"],
					"additionalProperties": false
				}`),
			},
			run: (*Handler).createSource,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_update_source",
				Description: "Update a webhook source's name, description, enabled state or signature verification.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"source_id": {"type": "string", "minLength": 1},
						"name": {"type": "string", "minLength": 1},
						"description": {"type": "string"},
						"enabled": {"type": "boolean"},
						"verify_signatures": {"type": "boolean"}
					},
					"required": ["source_id"],
					"additionalProperties": false
				}`),
			},
			run: (*Handler).updateSource,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_delete_source",
				Description: "Delete a webhook source. Routes attached to it stop receiving events.",
				InputSchema: idSchema("source_id", "Source ID"),
			},
			run: (*Handler).deleteSource,
		},
	}
}

func (h *Handler) listSources(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		pageInput
		Search   string `json:"search"`
		Provider string `json:"provider"`
		Enabled  *bool  `json:"enabled"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	q := url.Values{}
	in.apply(q)
	setString(q, "search", in.Search)
	setString(q, "provider", in.Provider)
	setBool(q, "isActive", in.Enabled)
	return list(ctx, h, h.path("/sources"), q, "sources", toSourceView)
}

func (h *Handler) getSource(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "source_id")
	if err != nil {
		return nil, err
	}
	return one(ctx, h, http.MethodGet, h.path("/sources/%s", id), nil, toSourceView)
}

func (h *Handler) createSource(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		Name             string `json:"name"`
		Slug             string `json:"slug"`
		Provider         string `json:"provider"`
		Description      string `json:"description"`
		VerifySignatures *bool  `json:"verify_signatures"`
		SigningSecret    string `json:"signing_secret"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, errors.New("name is required")
	}
	body := map[string]any{"name": in.Name}
	putString(body, "slug", in.Slug)
	putString(body, "provider", in.Provider)
	putString(body, "description", in.Description)
	putBool(body, "verifySignatures", in.VerifySignatures)
	putString(body, "signingSecret", in.SigningSecret)
	return one(ctx, h, http.MethodPost, h.path("/sources"), body, toSourceView)
}

func (h *Handler) updateSource(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		SourceID         string  `json:"source_id"`
		Name             *string `json:"name"`
		Description      *string `json:"description"`
		Enabled          *bool   `json:"enabled"`
		VerifySignatures *bool   `json:"verify_signatures"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	if in.SourceID == "" {
		return nil, errors.New("source_id is required")
	}
	body := map[string]any{}
	putStringPtr(body, "name", in.Name)
	putStringPtr(body, "description", in.Description)
	putBool(body, "isActive", in.Enabled)
	putBool(body, "verifySignatures", in.VerifySignatures)
	if len(body) == 0 {
		return nil, errNoChanges
	}
	return one(ctx, h, http.MethodPatch, h.path("/sources/%s", in.SourceID), body, toSourceView)
}

func (h *Handler) deleteSource(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "source_id")
	if err != nil {
		return nil, err
	}
	return remove(ctx, h, h.path("/sources/%s", id), id)
}

func putString(body map[string]any, key, v string) {
	if v != "" {
		body[key] = v
	}
}

func putStringPtr(body map[string]any, key string, v *string) {
	if v != nil {
		body[key] = *v
	}
}

func putBool(body map[string]any, key string, v *bool) {
	if v != nil {
		body[key] = *v
	}
}

func putInt(body map[string]any, key string, v *int) {
	if v != nil {
		body[key] = *v
	}
}

func putRaw(body map[string]any, key string, v json.RawMessage) {
	if len(v) > 0 && string(v) != "null" {
		body[key] = v
	}
}

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

type tunnelView struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Subdomain       string `json:"subdomain"`
	Status          string `json:"status"`
	PublicURL       string `json:"publicUrl,omitempty"`
	LastConnectedAt string `json:"lastConnectedAt,omitempty"`
	CreatedAt       string `json:"createdAt,omitempty"`
}

func toTunnelView(t hookbase.Tunnel) tunnelView {
	return tunnelView{
		ID:              t.ID,
		Name:            t.Name,
		Subdomain:       t.Subdomain,
		Status:          t.Status,
		PublicURL:       t.PublicURL,
		LastConnectedAt: t.LastConnectedAt,
		CreatedAt:       t.CreatedAt,
	}
}

func tunnelTools() []toolDef {
	return []toolDef{
		{
			tool: mcp.Tool{
				Name:        "hookbase_list_tunnels",
				Description: "List tunnels that relay webhooks to local development servers.",
				InputSchema: json.RawMessage(`{"type": "object", "properties": {` + pageProps + `}, "additionalProperties": false}`),
			},
			run: (*Handler).listTunnels,
		},
		{
			tool: mcp.Tool{Name: "hookbase_get_tunnel", Description: "Get a tunnel and its public URL.", InputSchema: idSchema("tunnel_id", "Tunnel ID")},
			run:  (*Handler).getTunnel,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_create_tunnel",
				Description: "Create a tunnel. Connect to it with the hookbase CLI to receive webhooks locally.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"name": {"type": "string", "minLength": 1},
						"subdomain": {"type": "string", "pattern": "^[a-z0-9][a-z0-9-]*$", "description": "Requested subdomain; assigned when omitted"}
					},
					"required": ["name"],
					"additionalProperties": false
				}`),
			},
			run: (*Handler).createTunnel,
		},
		{
			tool: mcp.Tool{Name: "hookbase_delete_tunnel", Description: "Delete a tunnel.", InputSchema: idSchema("tunnel_id", "Tunnel ID")},
			run:  (*Handler).deleteTunnel,
		},
		{
			tool: mcp.Tool{Name: "hookbase_get_tunnel_status", Description: "Report whether a tunnel client is currently connected.", InputSchema: idSchema("tunnel_id", "Tunnel ID")},
			run:  (*Handler).getTunnelStatus,
		},
	}
}

func (h *Handler) listTunnels(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in pageInput
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	q := url.Values{}
	in.apply(q)
	return list(ctx, h, h.path("/tunnels"), q, "tunnels", toTunnelView)
}

func (h *Handler) getTunnel(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "tunnel_id")
	if err != nil {
		return nil, err
	}
	return one(ctx, h, http.MethodGet, h.path("/tunnels/%s", id), nil, toTunnelView)
}

func (h *Handler) createTunnel(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		Name      string `json:"name"`
		Subdomain string `json:"subdomain"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, errors.New("name is required")
	}
	body := map[string]any{"name": in.Name}
	putString(body, "subdomain", in.Subdomain)
	return one(ctx, h, http.MethodPost, h.path("/tunnels"), body, toTunnelView)
}

func (h *Handler) deleteTunnel(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "tunnel_id")
	if err != nil {
		return nil, err
	}
	return remove(ctx, h, h.path("/tunnels/%s", id), id)
}

func (h *Handler) getTunnelStatus(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "tunnel_id")
	if err != nil {
		return nil, err
	}
	return one(ctx, h, http.MethodGet, h.path("/tunnels/%s/status", id), nil, identity[hookbase.TunnelStatus])
}

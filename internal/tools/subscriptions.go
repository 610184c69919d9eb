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

type subscriptionView struct {
	ID            string `json:"id"`
	EndpointID    string `json:"endpointId"`
	EventTypeID   string `json:"eventTypeId"`
	EventTypeName string `json:"eventTypeName,omitempty"`
	Enabled       bool   `json:"enabled"`
	CreatedAt     string `json:"createdAt,omitempty"`
}

func toSubscriptionView(s hookbase.Subscription) subscriptionView {
	return subscriptionView{
		ID:            s.ID,
		EndpointID:    s.EndpointID,
		EventTypeID:   s.EventTypeID,
		EventTypeName: s.EventTypeName,
		Enabled:       bool(s.IsActive),
		CreatedAt:     s.CreatedAt,
	}
}

func subscriptionTools() []toolDef {
	return []toolDef{
		{
			tool: mcp.Tool{
				Name:        "hookbase_list_subscriptions",
				Description: "List which event types each outbound endpoint is subscribed to.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						` + pageProps + `,
						"endpoint_id": {"type": "string"},
						"event_type_id": {"type": "string"}
					},
					"additionalProperties": false
				}`),
			},
			run: (*Handler).listSubscriptions,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_create_subscription",
				Description: "Subscribe an endpoint to an event type.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"endpoint_id": {"type": "string", "minLength": 1},
						"event_type_id": {"type": "string", "minLength": 1}
					},
					"required": ["endpoint_id", "event_type_id"],
					"additionalProperties": false
				}`),
			},
			run: (*Handler).createSubscription,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_update_subscription",
				Description: "Pause or resume a subscription.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"subscription_id": {"type": "string", "minLength": 1},
						"enabled": {"type": "boolean"}
					},
					"required": ["subscription_id", "enabled"],
					"additionalProperties": false
				}`),
			},
			run: (*Handler).updateSubscription,
		},
		{
			tool: mcp.Tool{Name: "hookbase_delete_subscription", Description: "Unsubscribe an endpoint from an event type.", InputSchema: idSchema("subscription_id", "Subscription ID")},
			run:  (*Handler).deleteSubscription,
		},
	}
}

func (h *Handler) listSubscriptions(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		pageInput
		EndpointID  string `json:"endpoint_id"`
		EventTypeID string `json:"event_type_id"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	q := url.Values{}
	in.apply(q)
	setString(q, "endpointId", in.EndpointID)
	setString(q, "eventTypeId", in.EventTypeID)
	return list(ctx, h, h.path("/webhook-subscriptions"), q, "subscriptions", toSubscriptionView)
}

func (h *Handler) createSubscription(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		EndpointID  string `json:"endpoint_id"`
		EventTypeID string `json:"event_type_id"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	if in.EndpointID == "" || in.EventTypeID == "" {
		return nil, errors.New("endpoint_id and event_type_id are required")
	}
	body := map[string]any{"endpointId": in.EndpointID, "eventTypeId": in.EventTypeID}
	return one(ctx, h, http.MethodPost, h.path("/webhook-subscriptions"), body, toSubscriptionView)
}

func (h *Handler) updateSubscription(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		SubscriptionID string `json:"subscription_id"`
		Enabled        *bool  `json:"enabled"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	if in.SubscriptionID == "" || in.Enabled == nil {
		return nil, errors.New("subscription_id and enabled are required")
	}
	body := map[string]any{"isActive": *in.Enabled}
	return one(ctx, h, http.MethodPatch, h.path("/webhook-subscriptions/%s", in.SubscriptionID), body, toSubscriptionView)
}

func (h *Handler) deleteSubscription(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "subscription_id")
	if err != nil {
		return nil, err
	}
	return remove(ctx, h, h.path("/webhook-subscriptions/%s", id), id)
}

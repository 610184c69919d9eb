package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/golovatskygroup/hookbase-mcp/internal/hookbase"
	"github.com/golovatskygroup/hookbase-mcp/pkg/mcp"
)

const maxBulkReplay = 100

type deliveryView struct {
	ID             string `json:"id"`
	EventID        string `json:"eventId"`
	RouteID        string `json:"routeId,omitempty"`
	DestinationID  string `json:"destinationId"`
	Status         string `json:"status"`
	AttemptCount   int    `json:"attemptCount"`
	ResponseStatus int    `json:"responseStatus,omitempty"`
	ResponseBody   string `json:"responseBody,omitempty"`
	DurationMS     int64  `json:"durationMs,omitempty"`
	Error          string `json:"error,omitempty"`
	NextRetryAt    string `json:"nextRetryAt,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

func toDeliveryView(d hookbase.Delivery) deliveryView {
	return deliveryView{
		ID:             d.ID,
		EventID:        d.EventID,
		RouteID:        d.RouteID,
		DestinationID:  d.DestinationID,
		Status:         d.Status,
		AttemptCount:   d.AttemptCount,
		ResponseStatus: d.ResponseStatus,
		ResponseBody:   d.ResponseBody,
		DurationMS:     d.DurationMS,
		Error:          d.Error,
		NextRetryAt:    d.NextRetryAt,
		CreatedAt:      d.CreatedAt,
	}
}

func deliveryTools() []toolDef {
	return []toolDef{
		{
			tool: mcp.Tool{
				Name:        "hookbase_list_deliveries",
				Description: "List forwarding attempts of inbound events to destinations. Filter by status=failed to find broken routes.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						` + pageProps + `,
						"event_id": {"type": "string"},
						"route_id": {"type": "string"},
						"destination_id": {"type": "string"},
						"status": {"type": "string", "enum": ["pending", "success", "failed", "retrying"]}
					},
					"additionalProperties": false
				}`),
			},
			run: (*Handler).listDeliveries,
		},
		{
			tool: mcp.Tool{Name: "hookbase_get_delivery", Description: "Get a delivery including the destination's response.", InputSchema: idSchema("delivery_id", "Delivery ID")},
			run:  (*Handler).getDelivery,
		},
		{
			tool: mcp.Tool{Name: "hookbase_replay_delivery", Description: "Queue a delivery to be sent again to its destination.", InputSchema: idSchema("delivery_id", "Delivery ID")},
			run:  (*Handler).replayDelivery,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_bulk_replay_deliveries",
				Description: "Queue up to 100 deliveries for replay in one request.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"delivery_ids": {
							"type": "array",
							"items": {"type": "string", "minLength": 1},
							"minItems": 1,
							"maxItems": 100,
							"uniqueItems": true
						}
					},
					"required": ["delivery_ids"],
					"additionalProperties": false
				}`),
			},
			run: (*Handler).bulkReplayDeliveries,
		},
	}
}

func (h *Handler) listDeliveries(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		pageInput
		EventID       string `json:"event_id"`
		RouteID       string `json:"route_id"`
		DestinationID string `json:"destination_id"`
		Status        string `json:"status"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	q := url.Values{}
	in.apply(q)
	setString(q, "eventId", in.EventID)
	setString(q, "routeId", in.RouteID)
	setString(q, "destinationId", in.DestinationID)
	setString(q, "status", in.Status)
	return list(ctx, h, h.path("/deliveries"), q, "deliveries", toDeliveryView)
}

func (h *Handler) getDelivery(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "delivery_id")
	if err != nil {
		return nil, err
	}
	return one(ctx, h, http.MethodGet, h.path("/deliveries/%s", id), nil, toDeliveryView)
}

func (h *Handler) replayDelivery(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "delivery_id")
	if err != nil {
		return nil, err
	}
	return one(ctx, h, http.MethodPost, h.path("/deliveries/%s/replay", id), nil, func(r hookbase.ReplayResult) hookbase.ReplayResult {
		if r.DeliveryID == "" {
			r.DeliveryID = id
		}
		return r
	})
}

func (h *Handler) bulkReplayDeliveries(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		DeliveryIDs []string `json:"delivery_ids"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	switch {
	case len(in.DeliveryIDs) == 0:
		return nil, errors.New("delivery_ids must contain at least one id")
	case len(in.DeliveryIDs) > maxBulkReplay:
		return nil, fmt.Errorf("delivery_ids accepts at most %d ids", maxBulkReplay)
	}
	body := map[string]any{"deliveryIds": in.DeliveryIDs}
	return one(ctx, h, http.MethodPost, h.path("/deliveries/bulk-replay"), body, func(r hookbase.BulkReplayResult) hookbase.BulkReplayResult {
		if r.Skipped == nil {
			r.Skipped = []string{}
		}
		return r
	})
}

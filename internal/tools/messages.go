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

type messageView struct {
	ID            string `json:"id"`
	EventID       string `json:"eventId"`
	ApplicationID string `json:"applicationId"`
	EndpointID    string `json:"endpointId"`
	EventType     string `json:"eventType"`
	Status        string `json:"status"`
	AttemptCount  int    `json:"attemptCount"`
	LastAttemptAt string `json:"lastAttemptAt,omitempty"`
	NextAttemptAt string `json:"nextAttemptAt,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

func toMessageView(m hookbase.Message) messageView {
	return messageView{
		ID:            m.ID,
		EventID:       m.EventID,
		ApplicationID: m.ApplicationID,
		EndpointID:    m.EndpointID,
		EventType:     m.EventType,
		Status:        m.Status,
		AttemptCount:  m.AttemptCount,
		LastAttemptAt: m.LastAttemptAt,
		NextAttemptAt: m.NextAttemptAt,
		CreatedAt:     m.CreatedAt,
	}
}

type attemptView struct {
	ID             string `json:"id"`
	AttemptNumber  int    `json:"attemptNumber"`
	ResponseStatus int    `json:"responseStatus,omitempty"`
	ResponseBody   string `json:"responseBody,omitempty"`
	DurationMS     int64  `json:"durationMs"`
	Error          string `json:"error,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

func toAttemptView(a hookbase.MessageAttempt) attemptView {
	return attemptView{
		ID:             a.ID,
		AttemptNumber:  a.AttemptNumber,
		ResponseStatus: a.ResponseStatus,
		ResponseBody:   a.ResponseBody,
		DurationMS:     a.DurationMS,
		Error:          a.Error,
		CreatedAt:      a.CreatedAt,
	}
}

func messageTools() []toolDef {
	return []toolDef{
		{
			tool: mcp.Tool{
				Name:        "hookbase_send_event",
				Description: "Send an outbound event. It fans out as one message per subscribed endpoint.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"event_type": {"type": "string", "minLength": 1, "description": "Event type name, e.g. order.created"},
						"payload": {"type": "object", "description": "Event body"},
						"application_id": {"type": "string", "description": "Restrict delivery to one application"},
						"idempotency_key": {"type": "string", "description": "Repeat sends with the same key are ignored"}
					},
					"required": ["event_type", "payload"],
					"additionalProperties": false
				}`),
			},
			run: (*Handler).sendEvent,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_list_messages",
				Description: "List outbound messages (one per event and endpoint) with delivery status.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						` + pageProps + `,
						"application_id": {"type": "string"},
						"endpoint_id": {"type": "string"},
						"event_type": {"type": "string"},
						"status": {"type": "string", "enum": ["pending", "success", "failed", "exhausted"]}
					},
					"additionalProperties": false
				}`),
			},
			run: (*Handler).listMessages,
		},
		{
			tool: mcp.Tool{Name: "hookbase_get_message", Description: "Get an outbound message.", InputSchema: idSchema("message_id", "Message ID")},
			run:  (*Handler).getMessage,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_list_message_attempts",
				Description: "List delivery attempts of an outbound message with response codes and errors.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"message_id": {"type": "string", "minLength": 1},
						` + pageProps + `
					},
					"required": ["message_id"],
					"additionalProperties": false
				}`),
			},
			run: (*Handler).listMessageAttempts,
		},
		{
			tool: mcp.Tool{Name: "hookbase_replay_message", Description: "Queue an outbound message for redelivery.", InputSchema: idSchema("message_id", "Message ID")},
			run:  (*Handler).replayMessage,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_get_outbound_stats",
				Description: "Get outbound delivery counts by status and the overall success rate.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"range": {"type": "string", "enum": ["1h", "24h", "7d", "30d"]}
					},
					"additionalProperties": false
				}`),
			},
			run: (*Handler).getOutboundStats,
		},
	}
}

func (h *Handler) sendEvent(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		EventType      string          `json:"event_type"`
		Payload        json.RawMessage `json:"payload"`
		ApplicationID  string          `json:"application_id"`
		IdempotencyKey string          `json:"idempotency_key"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	if in.EventType == "" || len(in.Payload) == 0 || string(in.Payload) == "null" {
		return nil, errors.New("event_type and payload are required")
	}
	body := map[string]any{"eventType": in.EventType, "payload": in.Payload}
	putString(body, "applicationId", in.ApplicationID)
	putString(body, "idempotencyKey", in.IdempotencyKey)
	return one(ctx, h, http.MethodPost, h.path("/send-event"), body, identity[hookbase.SendEventResult])
}

func (h *Handler) listMessages(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		pageInput
		ApplicationID string `json:"application_id"`
		EndpointID    string `json:"endpoint_id"`
		EventType     string `json:"event_type"`
		Status        string `json:"status"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	q := url.Values{}
	in.apply(q)
	setString(q, "applicationId", in.ApplicationID)
	setString(q, "endpointId", in.EndpointID)
	setString(q, "eventType", in.EventType)
	setString(q, "status", in.Status)
	return list(ctx, h, h.path("/outbound-messages"), q, "messages", toMessageView)
}

func (h *Handler) getMessage(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "message_id")
	if err != nil {
		return nil, err
	}
	return one(ctx, h, http.MethodGet, h.path("/outbound-messages/%s", id), nil, toMessageView)
}

func (h *Handler) listMessageAttempts(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		pageInput
		MessageID string `json:"message_id"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	if in.MessageID == "" {
		return nil, errors.New("message_id is required")
	}
	q := url.Values{}
	in.apply(q)
	return list(ctx, h, h.path("/outbound-messages/%s/attempts", in.MessageID), q, "attempts", toAttemptView)
}

func (h *Handler) replayMessage(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "message_id")
	if err != nil {
		return nil, err
	}
	return one(ctx, h, http.MethodPost, h.path("/outbound-messages/%s/replay", id), nil, func(r hookbase.MessageReplayResult) hookbase.MessageReplayResult {
		if r.MessageID == "" {
			r.MessageID = id
		}
		return r
	})
}

func (h *Handler) getOutboundStats(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		Range string `json:"range"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	q := url.Values{}
	setString(q, "range", in.Range)
	return one(ctx, h, http.MethodGet, withQuery(h.path("/outbound-messages/stats"), q), nil, identity[hookbase.OutboundStats])
}

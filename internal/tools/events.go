package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/golovatskygroup/hookbase-mcp/internal/hookbase"
	"github.com/golovatskygroup/hookbase-mcp/pkg/mcp"
)

type eventSummaryView struct {
	ID             string `json:"id"`
	SourceID       string `json:"sourceId"`
	EventType      string `json:"eventType,omitempty"`
	Status         string `json:"status"`
	ReceivedAt     string `json:"receivedAt"`
	PayloadSize    int64  `json:"payloadSize"`
	SignatureValid bool   `json:"signatureValid"`
	DeliveryCount  int    `json:"deliveryCount"`
}

type eventView struct {
	eventSummaryView
	Headers map[string]string `json:"headers,omitempty"`
	Payload json.RawMessage   `json:"payload,omitempty"`
}

func toEventSummaryView(e hookbase.Event) eventSummaryView {
	return eventSummaryView{
		ID:             e.ID,
		SourceID:       e.SourceID,
		EventType:      e.EventType,
		Status:         e.Status,
		ReceivedAt:     e.ReceivedAt,
		PayloadSize:    e.PayloadSize,
		SignatureValid: bool(e.SignatureValid),
		DeliveryCount:  e.DeliveryCount,
	}
}

func toEventView(e hookbase.Event) eventView {
	v := eventView{eventSummaryView: toEventSummaryView(e), Headers: e.Headers}
	if len(e.Payload) > 0 && string(e.Payload) != "null" {
		v.Payload = e.Payload
	}
	return v
}

type eventDebugView struct {
	Event       eventView   `json:"event"`
	Source      debugSource `json:"source"`
	IngestURL   string      `json:"ingestUrl"`
	CurlCommand string      `json:"curlCommand"`
	Hints       []string    `json:"hints,omitempty"`
}

type debugSource struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Slug             string `json:"slug"`
	Provider         string `json:"provider,omitempty"`
	IsActive         bool   `json:"isActive"`
	VerifySignatures bool   `json:"verifySignatures"`
}

func eventTools() []toolDef {
	return []toolDef{
		{
			tool: mcp.Tool{
				Name:        "hookbase_list_events",
				Description: "List received inbound webhook events, newest first. Payloads are omitted; use hookbase_get_event for the body.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						` + pageProps + `,
						"source_id": {"type": "string"},
						"event_type": {"type": "string"},
						"status": {"type": "string", "enum": ["received", "delivered", "failed", "filtered", "pending"]},
						"since": {"type": "string", "description": "ISO-8601 lower bound on receivedAt"},
						"until": {"type": "string", "description": "ISO-8601 upper bound on receivedAt"}
					},
					"additionalProperties": false
				}`),
			},
			run: (*Handler).listEvents,
		},
		{
			tool: mcp.Tool{Name: "hookbase_get_event", Description: "Get an inbound event with its headers and payload.", InputSchema: idSchema("event_id", "Event ID")},
			run:  (*Handler).getEvent,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_get_event_debug",
				Description: "Get an event together with its source and a ready-to-run curl command that re-sends the payload to the source's ingest URL.",
				InputSchema: idSchema("event_id", "Event ID"),
			},
			run: (*Handler).getEventDebug,
		},
	}
}

func (h *Handler) listEvents(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		pageInput
		SourceID  string `json:"source_id"`
		EventType string `json:"event_type"`
		Status    string `json:"status"`
		Since     string `json:"since"`
		Until     string `json:"until"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	q := url.Values{}
	in.apply(q)
	setString(q, "sourceId", in.SourceID)
	setString(q, "eventType", in.EventType)
	setString(q, "status", in.Status)
	setString(q, "since", in.Since)
	setString(q, "until", in.Until)
	return list(ctx, h, h.path("/events"), q, "events", toEventSummaryView)
}

func (h *Handler) getEvent(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "event_id")
	if err != nil {
		return nil, err
	}
	return one(ctx, h, http.MethodGet, h.path("/events/%s", id), nil, toEventView)
}

// getEventDebug is the only tool issuing two requests. A failed source read
// fails the whole call; the event already fetched is dropped.
func (h *Handler) getEventDebug(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "event_id")
	if err != nil {
		return nil, err
	}
	event, err := hookbase.Do[hookbase.Event](ctx, h.api, http.MethodGet, h.path("/events/%s", id), nil)
	if err != nil {
		return nil, err
	}
	source, err := hookbase.Do[hookbase.Source](ctx, h.api, http.MethodGet, h.path("/sources/%s", event.SourceID), nil)
	if err != nil {
		return nil, err
	}

	ingest := h.ingestURL(source.Slug)
	return jsonResult(eventDebugView{
		Event: toEventView(event),
		Source: debugSource{
			ID:               source.ID,
			Name:             source.Name,
			Slug:             source.Slug,
			Provider:         source.Provider,
			IsActive:         bool(source.IsActive),
			VerifySignatures: bool(source.VerifySignatures),
		},
		IngestURL:   ingest,
		CurlCommand: curlCommand(ingest, event.Headers, event.Payload),
		Hints:       debugHints(event, source),
	})
}

func (h *Handler) ingestURL(slug string) string {
	return strings.TrimRight(h.cfg.APIURL, "/") + "/ingest/" + url.PathEscape(h.cfg.OrganizationID) + "/" + url.PathEscape(slug)
}

// Headers the relay sets itself or that curl computes.
var skippedReplayHeaders = map[string]bool{
	"host":              true,
	"content-length":    true,
	"connection":        true,
	"accept-encoding":   true,
	"transfer-encoding": true,
	"cf-connecting-ip":  true,
	"cf-ray":            true,
	"x-forwarded-for":   true,
	"x-forwarded-proto": true,
	"x-real-ip":         true,
}

func curlCommand(target string, headers map[string]string, payload json.RawMessage) string {
	var b strings.Builder
	b.WriteString("curl -X POST ")
	b.WriteString(shellQuote(target))

	names := make([]string, 0, len(headers))
	for k := range headers {
		if !skippedReplayHeaders[strings.ToLower(k)] {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	hasContentType := false
	for _, k := range names {
		if strings.EqualFold(k, "content-type") {
			hasContentType = true
		}
		b.WriteString(" \\\n  -H ")
		b.WriteString(shellQuote(k + ": " + headers[k]))
	}
	if !hasContentType {
		b.WriteString(" \\\n  -H ")
		b.WriteString(shellQuote("Content-Type: application/json"))
	}
	if len(payload) > 0 && string(payload) != "null" {
		b.WriteString(" \\\n  --data-raw ")
		b.WriteString(shellQuote(string(payload)))
	}
	return b.String()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func debugHints(e hookbase.Event, s hookbase.Source) []string {
	var hints []string
	if !bool(s.IsActive) {
		hints = append(hints, "source is disabled; replayed requests will be rejected until it is re-enabled")
	}
	if bool(s.VerifySignatures) {
		hints = append(hints, "source verifies signatures; a replay carrying the original signature header may fail if the provider signs timestamps")
		if !bool(e.SignatureValid) {
			hints = append(hints, "the original delivery failed signature verification; check the source's signing secret")
		}
	}
	if e.Status == "failed" {
		hints = append(hints, "inspect hookbase_list_deliveries with this event_id for the failing destination response")
	}
	if e.DeliveryCount == 0 && e.Status != "filtered" {
		hints = append(hints, "no deliveries were attempted; check that an enabled route exists for this source")
	}
	return hints
}

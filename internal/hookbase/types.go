package hookbase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Flag decodes the API's boolean columns, which arrive as 0/1 integers,
// booleans, or their string forms. null decodes as false.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	switch strings.ToLower(s) {
	case "1", "true":
		*f = true
	case "0", "false", "", "null":
		*f = false
	default:
		return fmt.Errorf("hookbase: cannot decode %s as flag", b)
	}
	return nil
}

// Headers decodes a header map leniently. Multi-value headers arrive as
// arrays and are joined with ", "; other non-string values keep their JSON
// text; null values are dropped. A map stored as a JSON string is unwrapped.
type Headers map[string]string

func (h *Headers) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*h = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var inner string
		if err := json.Unmarshal(b, &inner); err != nil {
			return err
		}
		if strings.TrimSpace(inner) == "" {
			*h = nil
			return nil
		}
		b = []byte(inner)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("hookbase: cannot decode headers: %w", err)
	}
	out := make(Headers, len(raw))
	for k, v := range raw {
		if s, ok := headerValue(v); ok {
			out[k] = s
		}
	}
	*h = out
	return nil
}

func headerValue(v json.RawMessage) (string, bool) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return "", false
	}
	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s, true
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(v, &items); err == nil {
			parts := make([]string, 0, len(items))
			for _, it := range items {
				if s, ok := headerValue(it); ok {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, ", "), true
		}
	}
	return string(v), true
}

// Page is the envelope of every list endpoint.
type Page[T any] struct {
	Data       []T         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}

// Identity is the body of GET /api/auth/me.
type Identity struct {
	User          IdentityUser   `json:"user"`
	Organizations []Organization `json:"organizations"`
}

type IdentityUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	Role string `json:"role"`
}

// Inbound primitives.

type Source struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Slug             string `json:"slug"`
	Provider         string `json:"provider"`
	Description      string `json:"description"`
	IsActive         Flag   `json:"is_active"`
	VerifySignatures Flag   `json:"verify_signatures"`
	EventCount       int64  `json:"event_count"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

type Destination struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	URL       string  `json:"url"`
	Method    string  `json:"method"`
	Headers   Headers `json:"headers"`
	TimeoutMS int     `json:"timeout_ms"`
	AuthType  string  `json:"auth_type"`
	IsActive  Flag    `json:"is_active"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type Route struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	SourceID      string `json:"source_id"`
	DestinationID string `json:"destination_id"`
	FilterID      string `json:"filter_id"`
	TransformID   string `json:"transform_id"`
	Priority      int    `json:"priority"`
	IsActive      Flag   `json:"is_active"`
	CreatedAt     string `json:"created_at"`
}

type Event struct {
	ID             string          `json:"id"`
	SourceID       string          `json:"source_id"`
	EventType      string          `json:"event_type"`
	Status         string          `json:"status"`
	ReceivedAt     string          `json:"received_at"`
	Headers        Headers         `json:"headers"`
	Payload        json.RawMessage `json:"payload"`
	PayloadSize    int64           `json:"payload_size"`
	SignatureValid Flag            `json:"signature_valid"`
	DeliveryCount  int             `json:"delivery_count"`
}

type Delivery struct {
	ID             string `json:"id"`
	EventID        string `json:"event_id"`
	RouteID        string `json:"route_id"`
	DestinationID  string `json:"destination_id"`
	Status         string `json:"status"`
	AttemptCount   int    `json:"attempt_count"`
	ResponseStatus int    `json:"response_status"`
	ResponseBody   string `json:"response_body"`
	DurationMS     int64  `json:"duration_ms"`
	Error          string `json:"error"`
	NextRetryAt    string `json:"next_retry_at"`
	CreatedAt      string `json:"created_at"`
}

type ReplayResult struct {
	DeliveryID string `json:"deliveryId"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

type BulkReplayResult struct {
	Queued  int      `json:"queued"`
	Failed  int      `json:"failed"`
	Skipped []string `json:"skipped"`
}

type Tunnel struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Subdomain       string `json:"subdomain"`
	Status          string `json:"status"`
	PublicURL       string `json:"public_url"`
	LastConnectedAt string `json:"last_connected_at"`
	CreatedAt       string `json:"created_at"`
}

type TunnelStatus struct {
	Connected         bool   `json:"connected"`
	Status            string `json:"status"`
	LastSeenAt        string `json:"lastSeenAt"`
	RequestsForwarded int64  `json:"requestsForwarded"`
}

type CronJob struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	CronExpression string          `json:"cron_expression"`
	URL            string          `json:"url"`
	Method         string          `json:"method"`
	Headers        Headers         `json:"headers"`
	Payload        json.RawMessage `json:"payload"`
	Timezone       string          `json:"timezone"`
	IsActive       Flag            `json:"is_active"`
	LastRunAt      string          `json:"last_run_at"`
	NextRunAt      string          `json:"next_run_at"`
	CreatedAt      string          `json:"created_at"`
}

type CronTriggerResult struct {
	ExecutionID    string `json:"executionId"`
	Status         string `json:"status"`
	ResponseStatus int    `json:"responseStatus"`
	DurationMS     int64  `json:"durationMs"`
	Error          string `json:"error"`
}

type Analytics struct {
	Range            string          `json:"range"`
	TotalEvents      int64           `json:"totalEvents"`
	TotalDeliveries  int64           `json:"totalDeliveries"`
	FailedDeliveries int64           `json:"failedDeliveries"`
	SuccessRate      float64         `json:"successRate"`
	AvgLatencyMS     float64         `json:"avgLatencyMs"`
	TopSources       []SourceVolume  `json:"topSources"`
	Timeline         json.RawMessage `json:"timeline"`
}

type SourceVolume struct {
	SourceID string `json:"sourceId"`
	Name     string `json:"name"`
	Count    int64  `json:"count"`
}

// Outbound primitives.

type Application struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	ExternalID    string          `json:"externalId"`
	Description   string          `json:"description"`
	Metadata      json.RawMessage `json:"metadata"`
	EndpointCount int             `json:"endpoint_count"`
	CreatedAt     string          `json:"created_at"`
}

type Endpoint struct {
	ID                  string   `json:"id"`
	ApplicationID       string   `json:"application_id"`
	URL                 string   `json:"url"`
	Description         string   `json:"description"`
	IsDisabled          Flag     `json:"is_disabled"`
	RateLimit           int      `json:"rate_limit"`
	CircuitState        string   `json:"circuit_state"`
	CircuitFailureCount int      `json:"circuit_failure_count"`
	CircuitOpenedAt     string   `json:"circuit_opened_at"`
	EventTypes          []string `json:"event_types"`
	CreatedAt           string   `json:"created_at"`
}

type EndpointSecret struct {
	Secret    string `json:"secret"`
	RotatedAt string `json:"rotatedAt"`
}

type Subscription struct {
	ID            string `json:"id"`
	EndpointID    string `json:"endpoint_id"`
	EventTypeID   string `json:"event_type_id"`
	EventTypeName string `json:"event_type_name"`
	IsActive      Flag   `json:"is_active"`
	CreatedAt     string `json:"created_at"`
}

type EventType struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	DisplayName  string          `json:"display_name"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Schema       json.RawMessage `json:"schema"`
	IsDeprecated Flag            `json:"is_deprecated"`
	CreatedAt    string          `json:"created_at"`
}

type SendEventResult struct {
	EventID        string `json:"eventId"`
	MessagesQueued int    `json:"messagesQueued"`
}

type Message struct {
	ID            string `json:"id"`
	EventID       string `json:"event_id"`
	ApplicationID string `json:"application_id"`
	EndpointID    string `json:"endpoint_id"`
	EventType     string `json:"event_type"`
	Status        string `json:"status"`
	AttemptCount  int    `json:"attempt_count"`
	LastAttemptAt string `json:"last_attempt_at"`
	NextAttemptAt string `json:"next_attempt_at"`
	CreatedAt     string `json:"created_at"`
}

type MessageAttempt struct {
	ID             string `json:"id"`
	MessageID      string `json:"message_id"`
	AttemptNumber  int    `json:"attempt_number"`
	ResponseStatus int    `json:"response_status"`
	ResponseBody   string `json:"response_body"`
	DurationMS     int64  `json:"duration_ms"`
	Error          string `json:"error"`
	CreatedAt      string `json:"created_at"`
}

type MessageReplayResult struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

type OutboundStats struct {
	Total       int64   `json:"total"`
	Pending     int64   `json:"pending"`
	Success     int64   `json:"success"`
	Failed      int64   `json:"failed"`
	Exhausted   int64   `json:"exhausted"`
	SuccessRate float64 `json:"successRate"`
}

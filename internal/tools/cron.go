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

type cronJobView struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	CronExpression string            `json:"cronExpression"`
	URL            string            `json:"url"`
	Method         string            `json:"method"`
	Headers        map[string]string `json:"headers,omitempty"`
	Payload        json.RawMessage   `json:"payload,omitempty"`
	Timezone       string            `json:"timezone"`
	IsActive       bool              `json:"isActive"`
	LastRunAt      string            `json:"lastRunAt,omitempty"`
	NextRunAt      string            `json:"nextRunAt,omitempty"`
	CreatedAt      string            `json:"createdAt,omitempty"`
}

func toCronJobView(c hookbase.CronJob) cronJobView {
	v := cronJobView{
		ID:             c.ID,
		Name:           c.Name,
		CronExpression: c.CronExpression,
		URL:            c.URL,
		Method:         c.Method,
		Headers:        c.Headers,
		Timezone:       c.Timezone,
		IsActive:       bool(c.IsActive),
		LastRunAt:      c.LastRunAt,
		NextRunAt:      c.NextRunAt,
		CreatedAt:      c.CreatedAt,
	}
	if v.Method == "" {
		v.Method = http.MethodPost
	}
	if v.Timezone == "" {
		v.Timezone = "UTC"
	}
	if len(c.Payload) > 0 && string(c.Payload) != "null" {
		v.Payload = c.Payload
	}
	return v
}

const cronProps = `
	"name": {"type": "string", "minLength": 1},
	"cron_expression": {"type": "string", "minLength": 9, "description": "Five-field cron expression, e.g. '*/5 * * * *'"},
	"url": {"type": "string", "description": "URL called on each run"},
	"method": {"type": "string", "enum": ["GET", "POST", "PUT", "PATCH", "DELETE"]},
	"headers": {"type": "object", "additionalProperties": {"type": "string"}},
	"payload": {"description": "JSON body sent on each run"},
	"timezone": {"type": "string", "description": "IANA timezone (default: UTC)"},
	"enabled": {"type": "boolean"}`

func cronTools() []toolDef {
	return []toolDef{
		{
			tool: mcp.Tool{
				Name:        "hookbase_list_cron_jobs",
				Description: "List scheduled cron jobs that call a URL on a schedule.",
				InputSchema: json.RawMessage(`{"type": "object", "properties": {` + pageProps + `}, "additionalProperties": false}`),
			},
			run: (*Handler).listCronJobs,
		},
		{
			tool: mcp.Tool{Name: "hookbase_get_cron_job", Description: "Get a cron job with its last and next run times.", InputSchema: idSchema("cron_job_id", "Cron job ID")},
			run:  (*Handler).getCronJob,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_create_cron_job",
				Description: "Create a cron job that sends an HTTP request on a schedule.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {` + cronProps + `
					},
					"required": ["name", "cron_expression", "url"],
					"additionalProperties": false
				}`),
			},
			run: (*Handler).createCronJob,
		},
		{
			tool: mcp.Tool{
				Name:        "hookbase_update_cron_job",
				Description: "Update a cron job's schedule, target, payload or enabled state.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"cron_job_id": {"type": "string", "minLength": 1},` + cronProps + `
					},
					"required": ["cron_job_id"],
					"additionalProperties": false
				}`),
			},
			run: (*Handler).updateCronJob,
		},
		{
			tool: mcp.Tool{Name: "hookbase_delete_cron_job", Description: "Delete a cron job.", InputSchema: idSchema("cron_job_id", "Cron job ID")},
			run:  (*Handler).deleteCronJob,
		},
		{
			tool: mcp.Tool{Name: "hookbase_trigger_cron_job", Description: "Run a cron job immediately, outside its schedule.", InputSchema: idSchema("cron_job_id", "Cron job ID")},
			run:  (*Handler).triggerCronJob,
		},
	}
}

type cronInput struct {
	Name           *string           `json:"name"`
	CronExpression *string           `json:"cron_expression"`
	URL            *string           `json:"url"`
	Method         *string           `json:"method"`
	Headers        map[string]string `json:"headers"`
	Payload        json.RawMessage   `json:"payload"`
	Timezone       *string           `json:"timezone"`
	Enabled        *bool             `json:"enabled"`
}

func (in cronInput) body() map[string]any {
	body := map[string]any{}
	putStringPtr(body, "name", in.Name)
	putStringPtr(body, "cronExpression", in.CronExpression)
	putStringPtr(body, "url", in.URL)
	putStringPtr(body, "method", in.Method)
	if in.Headers != nil {
		body["headers"] = in.Headers
	}
	putRaw(body, "payload", in.Payload)
	putStringPtr(body, "timezone", in.Timezone)
	putBool(body, "isActive", in.Enabled)
	return body
}

func (h *Handler) listCronJobs(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in pageInput
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	q := url.Values{}
	in.apply(q)
	return list(ctx, h, h.path("/cron"), q, "cronJobs", toCronJobView)
}

func (h *Handler) getCronJob(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "cron_job_id")
	if err != nil {
		return nil, err
	}
	return one(ctx, h, http.MethodGet, h.path("/cron/%s", id), nil, toCronJobView)
}

func (h *Handler) createCronJob(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in cronInput
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	if in.Name == nil || in.CronExpression == nil || in.URL == nil {
		return nil, errors.New("name, cron_expression and url are required")
	}
	return one(ctx, h, http.MethodPost, h.path("/cron"), in.body(), toCronJobView)
}

func (h *Handler) updateCronJob(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		cronInput
		CronJobID string `json:"cron_job_id"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	if in.CronJobID == "" {
		return nil, errors.New("cron_job_id is required")
	}
	body := in.body()
	if len(body) == 0 {
		return nil, errNoChanges
	}
	return one(ctx, h, http.MethodPatch, h.path("/cron/%s", in.CronJobID), body, toCronJobView)
}

func (h *Handler) deleteCronJob(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "cron_job_id")
	if err != nil {
		return nil, err
	}
	return remove(ctx, h, h.path("/cron/%s", id), id)
}

func (h *Handler) triggerCronJob(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	id, err := idArg(args, "cron_job_id")
	if err != nil {
		return nil, err
	}
	return one(ctx, h, http.MethodPost, h.path("/cron/%s/trigger", id), nil, identity[hookbase.CronTriggerResult])
}

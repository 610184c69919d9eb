package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/golovatskygroup/hookbase-mcp/internal/hookbase"
	"github.com/golovatskygroup/hookbase-mcp/pkg/mcp"
)

const defaultAnalyticsRange = "24h"

type analyticsView struct {
	Range            string                  `json:"range"`
	TotalEvents      int64                   `json:"totalEvents"`
	TotalDeliveries  int64                   `json:"totalDeliveries"`
	FailedDeliveries int64                   `json:"failedDeliveries"`
	SuccessRate      float64                 `json:"successRate"`
	AvgLatencyMS     float64                 `json:"avgLatencyMs"`
	TopSources       []hookbase.SourceVolume `json:"topSources"`
	Timeline         json.RawMessage         `json:"timeline,omitempty"`
}

func toAnalyticsView(rangeArg string) func(hookbase.Analytics) analyticsView {
	return func(a hookbase.Analytics) analyticsView {
		v := analyticsView{
			Range:            a.Range,
			TotalEvents:      a.TotalEvents,
			TotalDeliveries:  a.TotalDeliveries,
			FailedDeliveries: a.FailedDeliveries,
			SuccessRate:      a.SuccessRate,
			AvgLatencyMS:     a.AvgLatencyMS,
			TopSources:       a.TopSources,
		}
		if v.Range == "" {
			v.Range = rangeArg
		}
		if v.TopSources == nil {
			v.TopSources = []hookbase.SourceVolume{}
		}
		if len(a.Timeline) > 0 && string(a.Timeline) != "null" {
			v.Timeline = a.Timeline
		}
		return v
	}
}

func analyticsTools() []toolDef {
	return []toolDef{
		{
			tool: mcp.Tool{
				Name:        "hookbase_get_analytics",
				Description: "Get dashboard metrics: event and delivery volume, success rate, latency and top sources over a time range.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"range": {"type": "string", "enum": ["1h", "24h", "7d", "30d"], "description": "Time window (default: 24h)"}
					},
					"additionalProperties": false
				}`),
			},
			run: (*Handler).getAnalytics,
		},
	}
}

func (h *Handler) getAnalytics(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var in struct {
		Range string `json:"range"`
	}
	if err := bind(args, &in); err != nil {
		return nil, err
	}
	if in.Range == "" {
		in.Range = defaultAnalyticsRange
	}
	q := url.Values{"range": {in.Range}}
	return one(ctx, h, http.MethodGet, withQuery(h.path("/analytics/dashboard"), q), nil, toAnalyticsView(in.Range))
}

// Package prompts holds the canned instructional prompts offered to the
// host. They never call the API.
package prompts

import (
	"fmt"
	"strings"

	"github.com/golovatskygroup/hookbase-mcp/pkg/mcp"
)

type template struct {
	prompt mcp.Prompt
	render func(args map[string]string) string
}

var templates = []template{
	{
		prompt: mcp.Prompt{
			Name:        "debug_failed_webhook",
			Description: "Walk through diagnosing an inbound webhook that was not delivered",
			Arguments: []mcp.PromptArgument{
				{Name: "event_id", Description: "Event to start from; the most recent failures are used when omitted"},
				{Name: "symptom", Description: "What went wrong, e.g. 'destination returned 500'"},
			},
		},
		render: renderDebugFailedWebhook,
	},
	{
		prompt: mcp.Prompt{
			Name:        "setup_webhook_source",
			Description: "Create a source for a webhook provider and route it to a destination",
			Arguments: []mcp.PromptArgument{
				{Name: "provider", Description: "Webhook provider, e.g. stripe, github, shopify", Required: true},
				{Name: "destination_url", Description: "Where events should be forwarded"},
			},
		},
		render: renderSetupWebhookSource,
	},
	{
		prompt: mcp.Prompt{
			Name:        "setup_outbound_webhooks",
			Description: "Design event types, applications and endpoints for sending webhooks to your customers",
			Arguments: []mcp.PromptArgument{
				{Name: "use_case", Description: "What your customers need to be notified about", Required: true},
			},
		},
		render: renderSetupOutbound,
	},
	{
		prompt: mcp.Prompt{
			Name:        "webhook_health_report",
			Description: "Summarize inbound and outbound delivery health",
			Arguments: []mcp.PromptArgument{
				{Name: "time_range", Description: "One of 1h, 24h, 7d, 30d (default 24h)"},
			},
		},
		render: renderHealthReport,
	},
}

// List returns the prompt descriptors in a fixed order.
func List() []mcp.Prompt {
	out := make([]mcp.Prompt, 0, len(templates))
	for _, t := range templates {
		out = append(out, t.prompt)
	}
	return out
}

// Get renders a prompt. Unknown names and missing required arguments are errors.
func Get(name string, args map[string]string) (*mcp.GetPromptResult, error) {
	for _, t := range templates {
		if t.prompt.Name != name {
			continue
		}
		var missing []string
		for _, a := range t.prompt.Arguments {
			if a.Required && strings.TrimSpace(args[a.Name]) == "" {
				missing = append(missing, a.Name)
			}
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("prompt %s: missing required argument(s): %s", name, strings.Join(missing, ", "))
		}
		return &mcp.GetPromptResult{
			Description: t.prompt.Description,
			Messages: []mcp.PromptMessage{{
				Role:    "user",
				Content: mcp.ContentBlock{Type: "text", Text: t.render(args)},
			}},
		}, nil
	}
	return nil, fmt.Errorf("unknown prompt: %s", name)
}

func arg(args map[string]string, key, fallback string) string {
	if v := strings.TrimSpace(args[key]); v != "" {
		return v
	}
	return fallback
}

func renderDebugFailedWebhook(args map[string]string) string {
	var b strings.Builder
	b.WriteString("Help me debug a webhook that did not reach its destination.\n\n")
	if id := arg(args, "event_id", ""); id != "" {
		fmt.Fprintf(&b, "Start with event %s:\n", id)
		fmt.Fprintf(&b, "1. Call hookbase_get_event_debug with event_id=%q to see the event, its source and a replay command.\n", id)
		fmt.Fprintf(&b, "2. Call hookbase_list_deliveries with event_id=%q and read the destination responses.\n", id)
	} else {
		b.WriteString("1. Call hookbase_list_deliveries with status=\"failed\" to find recent failures.\n")
		b.WriteString("2. Pick the most recent one and call hookbase_get_event_debug with its event id.\n")
	}
	b.WriteString("3. Check the route (hookbase_get_route) and destination (hookbase_get_destination) involved: are they enabled, is the URL right, is the timeout long enough?\n")
	b.WriteString("4. If signature verification failed, compare the source provider and signing settings.\n")
	b.WriteString("5. Once the cause is fixed, offer to replay with hookbase_replay_delivery.\n")
	if s := arg(args, "symptom", ""); s != "" {
		fmt.Fprintf(&b, "\nObserved symptom: %s\n", s)
	}
	b.WriteString("\nExplain the root cause in one short paragraph before suggesting changes.")
	return b.String()
}

func renderSetupWebhookSource(args map[string]string) string {
	provider := arg(args, "provider", "")
	var b strings.Builder
	fmt.Fprintf(&b, "Set up Hookbase to receive %s webhooks.\n\n", provider)
	b.WriteString("1. Check hookbase_list_sources for an existing source with this provider before creating one.\n")
	fmt.Fprintf(&b, "2. Create the source with hookbase_create_source (provider=%q, verify_signatures=true) and ask me for the signing secret.\n", provider)
	if dest := arg(args, "destination_url", ""); dest != "" {
		fmt.Fprintf(&b, "3. Create a destination for %s with hookbase_create_destination, or reuse a matching one.\n", dest)
	} else {
		b.WriteString("3. Ask me where events should go, then create a destination with hookbase_create_destination.\n")
	}
	b.WriteString("4. Connect them with hookbase_create_route.\n")
	fmt.Fprintf(&b, "5. Tell me the ingest URL to paste into the %s dashboard and which events to enable there.\n", provider)
	return b.String()
}

func renderSetupOutbound(args map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I want to send webhooks to my customers for this use case: %s\n\n", arg(args, "use_case", ""))
	b.WriteString("1. Propose a small set of dotted event type names (e.g. order.created) and review existing ones with hookbase_list_event_types.\n")
	b.WriteString("2. After I confirm, create them with hookbase_create_event_type, including a JSON schema for each payload.\n")
	b.WriteString("3. Create one application per customer with hookbase_create_application, using my customer id as external_id.\n")
	b.WriteString("4. Register each customer URL with hookbase_create_endpoint and subscribe it with hookbase_create_subscription.\n")
	b.WriteString("5. Send a test with hookbase_send_event and confirm delivery with hookbase_list_messages.\n")
	b.WriteString("\nRemind me that the endpoint signing secret is shown once and must be shared with the customer.")
	return b.String()
}

func renderHealthReport(args map[string]string) string {
	r := arg(args, "time_range", "24h")
	var b strings.Builder
	fmt.Fprintf(&b, "Produce a webhook health report for the last %s.\n\n", r)
	fmt.Fprintf(&b, "1. Call hookbase_get_analytics with range=%q for inbound volume, success rate and latency.\n", r)
	fmt.Fprintf(&b, "2. Call hookbase_get_outbound_stats with range=%q for outbound delivery status.\n", r)
	b.WriteString("3. Call hookbase_list_deliveries with status=\"failed\" and group failures by destination.\n")
	b.WriteString("4. Call hookbase_list_endpoints and flag any endpoint whose circuit is open or that is disabled.\n")
	b.WriteString("5. Check hookbase_list_tunnels and hookbase_list_cron_jobs for anything disconnected or inactive.\n")
	b.WriteString("\nFormat the report as: summary, inbound, outbound, action items.")
	return b.String()
}

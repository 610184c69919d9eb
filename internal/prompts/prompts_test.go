package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListOrder(t *testing.T) {
	names := []string{}
	for _, p := range List() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"debug_failed_webhook", "setup_webhook_source", "setup_outbound_webhooks", "webhook_health_report"}, names)
}

func TestGetRendersArguments(t *testing.T) {
	res, err := Get("debug_failed_webhook", map[string]string{"event_id": "evt_9", "symptom": "timeouts"})
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "user", res.Messages[0].Role)
	assert.Contains(t, res.Messages[0].Content.Text, `event_id="evt_9"`)
	assert.Contains(t, res.Messages[0].Content.Text, "timeouts")

	res, err = Get("webhook_health_report", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Messages[0].Content.Text, "last 24h")
}

func TestGetRequiresArguments(t *testing.T) {
	_, err := Get("setup_webhook_source", map[string]string{"destination_url": "https://example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider")

	_, err = Get("setup_outbound_webhooks", map[string]string{"use_case": "  "})
	assert.Error(t, err)

	res, err := Get("setup_webhook_source", map[string]string{"provider": "stripe"})
	require.NoError(t, err)
	assert.Contains(t, res.Messages[0].Content.Text, "stripe")
}

func TestGetUnknownPrompt(t *testing.T) {
	_, err := Get("nope", nil)
	assert.Error(t, err)
}

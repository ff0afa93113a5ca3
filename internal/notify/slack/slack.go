// Package slack dispatches claim decision events to Slack via incoming
// webhooks. The orchestrator calls Send on a detached goroutine; failures
// here never affect claim state.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/claimflow/internal/claim"
)

const (
	maxReasonLen = 3000
	httpTimeout  = 10 * time.Second
)

// Notifier sends decision events to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Send posts a decision event to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, ev *claim.DecisionEvent) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(ev)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(ev *claim.DecisionEvent) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(ev),
			{"type": "divider"},
			fieldsBlock(ev),
			{"type": "divider"},
			reasonBlock(ev),
			{"type": "divider"},
			contextBlock(ev),
		},
	}
}

func headerBlock(ev *claim.DecisionEvent) map[string]any {
	emoji := verdictEmoji(ev.Verdict)
	title := "Claim Referred"
	if ev.Verdict == claim.VerdictAccepted {
		title = "Claim Accepted"
	}
	text := fmt.Sprintf("%s %s: %s", emoji, title, ev.Claim.Number)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(ev *claim.DecisionEvent) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Claim:* %s", ev.Claim.Number),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Type:* %s", ev.Claim.Type),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Status:* %s", ev.Claim.Status),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Decision:* %s", ev.Claim.Decision),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func reasonBlock(ev *claim.DecisionEvent) map[string]any {
	text := truncate(ev.Reason, maxReasonLen)
	if text == "" {
		text = "_No reason recorded._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Reason*\n\n%s", text),
		},
	}
}

func contextBlock(ev *claim.DecisionEvent) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("claimflow • claim %s • %s", ev.Claim.ID, ev.At.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func verdictEmoji(v claim.Verdict) string {
	if v == claim.VerdictAccepted {
		return "\U0001f7e2" // green circle
	}
	return "\U0001f7e1" // yellow circle
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}

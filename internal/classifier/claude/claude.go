// Package claude implements claim.Classifier on the Anthropic API. The
// model is asked for a strict JSON verdict; whatever it returns is passed
// through raw so the adapter owns the contract check.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/claimflow/internal/claim"
)

const responseTokens = 1024

const systemPrompt = `You are an insurance claims triage classifier. Given a claim summary you
decide whether it can be accepted automatically or must be referred to a
human handler.

Respond with a single JSON object and nothing else:
{"decision": "accepted" | "referred", "reason": "<one sentence, max 200 characters>"}

Accept only clear, well-evidenced claims within coverage. When in doubt,
refer. You can never reject a claim.`

// Classifier calls the Anthropic Messages API to triage a claim.
type Classifier struct {
	client anthropic.Client
	model  string
}

// New creates a Claude-backed classifier with the given API key and model.
func New(apiKey, model string) *Classifier {
	return &Classifier{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Classify sends the claim context to the model and returns its raw
// decision and reason. Outages, rate limits, and timeouts come back as
// *claim.ClassifierUnavailableError so the orchestrator leaves the claim
// retryable.
func (c *Classifier) Classify(ctx context.Context, req *claim.ClassifyRequest) (string, string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: responseTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(req))),
		},
	})
	if err != nil {
		return "", "", &claim.ClassifierUnavailableError{Err: err}
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
		}
	}

	return parseVerdict(text)
}

func buildPrompt(req *claim.ClassifyRequest) string {
	payload, _ := json.MarshalIndent(map[string]any{
		"claim_number": req.ClaimNumber,
		"claim_type":   req.ClaimType,
		"product_name": req.ProductName,
		"coverage":     req.Coverage,
		"description":  req.Description,
		"evidence_flags": map[string]bool{
			"has_photo":   req.Evidence.HasPhoto,
			"has_receipt": req.Evidence.HasReceipt,
		},
	}, "", "  ")

	return fmt.Sprintf("Triage this claim:\n\n%s", string(payload))
}

// parseVerdict extracts the decision/reason pair from the model output.
// Unparseable output is returned as a raw decision string so the adapter's
// coercion path handles it; it is not a hard failure.
func parseVerdict(text string) (string, string, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var out struct {
		Decision string `json:"decision"`
		Reason   string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return trimmed, "unparseable classifier response", nil
	}
	return out.Decision, out.Reason, nil
}

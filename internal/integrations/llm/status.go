package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"digestbot/internal/domain"
)

// StatusBackend asks the configured LLM provider to classify one raw
// tracker status into the canonical taxonomy. The classifier keeps its own
// keyword fallback, so this backend only needs to be best-effort.
type StatusBackend struct {
	provider *Provider
}

func NewStatusBackend(provider *Provider) *StatusBackend {
	return &StatusBackend{provider: provider}
}

const statusSystemPrompt = `You classify work-item tracker statuses into one canonical bucket.
Choose exactly one of: New, In Progress, In Review, Done, Cancelled.
Statuses may be in any language. Blocked or waiting statuses count as Cancelled.

Respond with JSON only (no markdown):
{"normalized_status": "In Progress"}`

func (b *StatusBackend) ClassifyStatus(ctx context.Context, rawStatus string) (domain.CanonicalStatus, error) {
	userPrompt := fmt.Sprintf("Classify this status: %q", rawStatus)
	responseText, err := b.provider.Complete(ctx, statusSystemPrompt, userPrompt)
	if err != nil {
		return domain.StatusNew, err
	}
	return parseStatusResponse(responseText)
}

type statusResponse struct {
	NormalizedStatus string `json:"normalized_status"`
}

func parseStatusResponse(responseText string) (domain.CanonicalStatus, error) {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	label := responseText
	var parsed statusResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err == nil && parsed.NormalizedStatus != "" {
		label = parsed.NormalizedStatus
	} else {
		// Some models answer with a bare quoted or unquoted label.
		var asString string
		if err := json.Unmarshal([]byte(responseText), &asString); err == nil {
			label = asString
		}
	}

	status, ok := domain.ParseCanonicalStatus(strings.TrimSpace(label))
	if !ok {
		return domain.StatusNew, fmt.Errorf("unrecognized status label %q", label)
	}
	return status, nil
}

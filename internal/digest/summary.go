package digest

import (
	"context"
	"fmt"
	"strings"

	"digestbot/internal/domain"
)

// SummaryData is what a summarizer gets to work with: the already
// classified window contents for one queue.
type SummaryData struct {
	QueueKey          string
	WindowDescription string
	Groups            map[domain.CanonicalStatus][]domain.Issue
	TotalIssues       int
	FirstDigest       bool
}

// Summarizer produces the optional narrative block of a digest. It is
// best-effort: on error the deterministic template takes over.
type Summarizer interface {
	Summarize(ctx context.Context, data SummaryData) (string, error)
}

// Completer is the text-completion capability of an LLM provider.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LLMSummarizer asks the configured LLM for a short narrative summary of
// the window.
type LLMSummarizer struct {
	completer Completer
}

func NewLLMSummarizer(completer Completer) *LLMSummarizer {
	return &LLMSummarizer{completer: completer}
}

const summarySystemPrompt = `You summarize recent changes in a work-item queue for a daily chat digest.
Write 1-3 plain sentences. Mention completed work first, then work in review and in progress.
Refer to issues by their key. No headings, no lists, no markdown.`

func (s *LLMSummarizer) Summarize(ctx context.Context, data SummaryData) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Queue %s, changes %s, %d issues total.\n", data.QueueKey, data.WindowDescription, data.TotalIssues)
	for _, status := range domain.CanonicalStatuses {
		for _, issue := range data.Groups[status] {
			assignee := ""
			if issue.Assignee != "" && issue.Assignee != domain.Unassigned {
				assignee = " @" + issue.Assignee
			}
			fmt.Fprintf(&b, "- [%s] %s: %s%s\n", status, issue.Key, issue.Summary, assignee)
		}
	}

	text, err := s.completer.Complete(ctx, summarySystemPrompt, b.String())
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty summary response")
	}
	return text, nil
}

// TemplateSummary is the deterministic fallback: counts per bucket, the
// single-issue cases spelled out, new issues only mentioned after the
// first digest.
func TemplateSummary(data SummaryData) string {
	var parts []string

	if part := groupPart(data.Groups[domain.StatusDone], "Completed"); part != "" {
		parts = append(parts, part)
	}
	if part := groupPart(data.Groups[domain.StatusInReview], "In review"); part != "" {
		parts = append(parts, part)
	}
	if part := groupPart(data.Groups[domain.StatusInProgress], "In progress"); part != "" {
		parts = append(parts, part)
	}
	if newIssues := data.Groups[domain.StatusNew]; len(newIssues) > 0 && !data.FirstDigest {
		parts = append(parts, fmt.Sprintf("Added %d new issues", len(newIssues)))
	}

	if len(parts) > 0 {
		return strings.Join(parts, ". ") + "."
	}
	if data.FirstDigest {
		return fmt.Sprintf("First digest for queue %s. Total issues: %d.", data.QueueKey, data.TotalIssues)
	}
	return "No notable changes detected."
}

func groupPart(issues []domain.Issue, verb string) string {
	switch len(issues) {
	case 0:
		return ""
	case 1:
		issue := issues[0]
		assigneeText := ""
		if issue.Assignee != "" && issue.Assignee != domain.Unassigned {
			assigneeText = fmt.Sprintf(" (%s)", issue.Assignee)
		}
		return fmt.Sprintf("%s %s: %s%s", verb, issue.Key, issue.Summary, assigneeText)
	default:
		return fmt.Sprintf("%s %d issues", verb, len(issues))
	}
}

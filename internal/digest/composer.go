package digest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"digestbot/internal/domain"
)

// Report is the markup-agnostic result of composing a digest. A Renderer
// turns it into channel-specific text (Telegram HTML, Slack mrkdwn).
type Report struct {
	QueueKey          string
	QueueURL          string
	WindowDescription string
	GeneratedAt       time.Time

	Summary      string
	Participants []string
	Groups       []StatusGroup

	EmptyQueue bool // queue holds no issues at all
	NoChanges  bool // issues exist but none changed in the window
}

// StatusGroup is one non-empty canonical bucket in display order.
type StatusGroup struct {
	Status domain.CanonicalStatus
	Issues []domain.Issue
}

// Renderer converts a composed report into deliverable text.
type Renderer interface {
	Render(r *Report) string
	RenderError(queueKey, queueURL string) string
}

// QueueURL builds the web link for a queue.
func QueueURL(webBaseURL, queueKey string) string {
	return fmt.Sprintf("%s/queues/%s", strings.TrimRight(webBaseURL, "/"), queueKey)
}

// IssueURL builds the web link for an issue.
func IssueURL(webBaseURL, issueKey string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(webBaseURL, "/"), issueKey)
}

// Compose assembles the full report for a non-empty filtered window:
// header data, cleaned summary, deduplicated participants and the
// non-empty status groups in fixed enumeration order.
func Compose(webBaseURL, queueKey string, groups map[domain.CanonicalStatus][]domain.Issue, summary, windowDescription string, now time.Time) *Report {
	r := &Report{
		QueueKey:          queueKey,
		QueueURL:          QueueURL(webBaseURL, queueKey),
		WindowDescription: windowDescription,
		GeneratedAt:       now.UTC(),
		Summary:           cleanSummary(summary),
		Participants:      Participants(groups),
	}
	for _, status := range domain.CanonicalStatuses {
		if issues := groups[status]; len(issues) > 0 {
			r.Groups = append(r.Groups, StatusGroup{Status: status, Issues: issues})
		}
	}
	return r
}

// ComposeEmptyQueue builds the terminal report for a queue with no issues.
func ComposeEmptyQueue(webBaseURL, queueKey, windowDescription string, now time.Time) *Report {
	return &Report{
		QueueKey:          queueKey,
		QueueURL:          QueueURL(webBaseURL, queueKey),
		WindowDescription: windowDescription,
		GeneratedAt:       now.UTC(),
		EmptyQueue:        true,
	}
}

// ComposeNoChanges builds the terminal report for a window with no changes.
func ComposeNoChanges(webBaseURL, queueKey, windowDescription string, now time.Time) *Report {
	return &Report{
		QueueKey:          queueKey,
		QueueURL:          QueueURL(webBaseURL, queueKey),
		WindowDescription: windowDescription,
		GeneratedAt:       now.UTC(),
		NoChanges:         true,
	}
}

// Participants collects the distinct non-empty assignees across all
// groups, excluding the Unassigned sentinel. Sorted for stable output.
func Participants(groups map[domain.CanonicalStatus][]domain.Issue) []string {
	seen := make(map[string]bool)
	var participants []string
	for _, issues := range groups {
		for _, issue := range issues {
			name := strings.TrimSpace(issue.Assignee)
			if name == "" || name == domain.Unassigned || seen[name] {
				continue
			}
			seen[name] = true
			participants = append(participants, name)
		}
	}
	sort.Strings(participants)
	return participants
}

// summary labels the upstream generator sometimes prepends; they would
// duplicate the renderer's own heading.
var summaryLabels = []string{
	"📝 Summary:",
	"Summary:",
	"📝 Резюме:",
	"Резюме:",
}

func cleanSummary(summary string) string {
	summary = strings.TrimSpace(summary)
	for _, label := range summaryLabels {
		if strings.HasPrefix(summary, label) {
			summary = strings.TrimSpace(strings.TrimPrefix(summary, label))
		}
	}
	return summary
}

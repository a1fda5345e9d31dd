package slack

import (
	"fmt"
	"regexp"
	"strings"

	"digestbot/internal/digest"
	"digestbot/internal/domain"
)

// MrkdwnRenderer produces the same report structure as the Telegram HTML
// renderer, in Slack mrkdwn: <url|text> links and *bold*.
type MrkdwnRenderer struct {
	webBaseURL string
}

func NewMrkdwnRenderer(webBaseURL string) *MrkdwnRenderer {
	return &MrkdwnRenderer{webBaseURL: webBaseURL}
}

const generatedAtLayout = "02.01.2006 15:04"

func (r *MrkdwnRenderer) Render(report *digest.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*Queue digest <%s|%s>*\n", report.QueueURL, report.QueueKey)
	fmt.Fprintf(&b, "%s\n", report.WindowDescription)
	fmt.Fprintf(&b, "Generated: %s UTC\n\n", report.GeneratedAt.Format(generatedAtLayout))

	if report.EmptyQueue {
		b.WriteString("No issues in queue.")
		return b.String()
	}
	if report.NoChanges {
		b.WriteString("No changes in this period.")
		return b.String()
	}

	if report.Summary != "" {
		summary := linkQueueMentions(report.Summary, report.QueueKey, report.QueueURL)
		fmt.Fprintf(&b, "*Summary:* %s\n\n", summary)
	}

	if len(report.Participants) > 0 {
		fmt.Fprintf(&b, "*Participants:* %s\n\n", strings.Join(report.Participants, ", "))
	}

	for _, group := range report.Groups {
		fmt.Fprintf(&b, "*%s (%d):*\n", group.Status, len(group.Issues))
		for _, issue := range group.Issues {
			assigneeText := ""
			if issue.Assignee != "" && issue.Assignee != domain.Unassigned {
				assigneeText = fmt.Sprintf(" (%s)", issue.Assignee)
			}
			fmt.Fprintf(&b, "• <%s|%s> – %s%s\n",
				digest.IssueURL(r.webBaseURL, issue.Key), issue.Key, issue.Summary, assigneeText)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func (r *MrkdwnRenderer) RenderError(queueKey, queueURL string) string {
	return fmt.Sprintf("Could not generate digest for queue <%s|%s>", queueURL, queueKey)
}

func linkQueueMentions(text, queueKey, queueURL string) string {
	if queueKey == "" {
		return text
	}
	pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(queueKey) + `\b`)
	if err != nil {
		return text
	}
	return pattern.ReplaceAllStringFunc(text, func(match string) string {
		return fmt.Sprintf("<%s|%s>", queueURL, match)
	})
}

package telegram

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"digestbot/internal/digest"
	"digestbot/internal/domain"
)

// HTMLRenderer turns a composed report into Telegram HTML, the format the
// deployed bot always used: hyperlinked queue header, window line,
// generation timestamp, optional summary and participants, then one block
// per status.
type HTMLRenderer struct {
	webBaseURL string
}

func NewHTMLRenderer(webBaseURL string) *HTMLRenderer {
	return &HTMLRenderer{webBaseURL: webBaseURL}
}

const generatedAtLayout = "02.01.2006 15:04"

func (r *HTMLRenderer) Render(report *digest.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 <b>Queue digest <a href=%q>%s</a></b>\n", report.QueueURL, html.EscapeString(report.QueueKey))
	fmt.Fprintf(&b, "📅 %s\n", html.EscapeString(report.WindowDescription))
	fmt.Fprintf(&b, "🕐 Generated: %s UTC\n\n", report.GeneratedAt.Format(generatedAtLayout))

	if report.EmptyQueue {
		b.WriteString("📝 No issues in queue.")
		return b.String()
	}
	if report.NoChanges {
		b.WriteString("📝 No changes in this period.")
		return b.String()
	}

	if report.Summary != "" {
		summary := linkQueueMentions(html.EscapeString(report.Summary), report.QueueKey, report.QueueURL)
		fmt.Fprintf(&b, "📝 <b>Summary:</b> %s\n\n", summary)
	}

	if len(report.Participants) > 0 {
		escaped := make([]string, len(report.Participants))
		for i, p := range report.Participants {
			escaped[i] = html.EscapeString(p)
		}
		fmt.Fprintf(&b, "👥 <b>Participants:</b> %s\n\n", strings.Join(escaped, ", "))
	}

	for _, group := range report.Groups {
		fmt.Fprintf(&b, "📋 <b>%s (%d):</b>\n", group.Status, len(group.Issues))
		for _, issue := range group.Issues {
			b.WriteString(renderIssueLine(r.webBaseURL, issue))
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func (r *HTMLRenderer) RenderError(queueKey, queueURL string) string {
	return fmt.Sprintf("❌ Could not generate digest for queue <a href=%q>%s</a>", queueURL, html.EscapeString(queueKey))
}

func renderIssueLine(webBaseURL string, issue domain.Issue) string {
	assigneeText := ""
	if issue.Assignee != "" && issue.Assignee != domain.Unassigned {
		assigneeText = fmt.Sprintf(" (👤 %s)", html.EscapeString(issue.Assignee))
	}
	issueURL := digest.IssueURL(webBaseURL, issue.Key)
	return fmt.Sprintf("• <a href=%q>%s</a> – %s%s\n",
		issueURL, html.EscapeString(issue.Key), html.EscapeString(issue.Summary), assigneeText)
}

// linkQueueMentions rewrites word-boundary mentions of the queue key in
// the summary into hyperlinks, case-insensitively.
func linkQueueMentions(text, queueKey, queueURL string) string {
	if queueKey == "" {
		return text
	}
	pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(queueKey) + `\b`)
	if err != nil {
		return text
	}
	return pattern.ReplaceAllStringFunc(text, func(match string) string {
		return fmt.Sprintf("<a href=%q>%s</a>", queueURL, match)
	})
}

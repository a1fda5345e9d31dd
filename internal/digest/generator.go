package digest

import (
	"context"
	"log"
	"time"

	"digestbot/internal/domain"
)

// IssueSource is the external tracker seam. An empty queue is an empty
// slice, not an error; errors mean connectivity or protocol failure.
type IssueSource interface {
	ListQueueIssues(ctx context.Context, queueKey string) ([]domain.Issue, error)
}

// Grouper partitions issues into canonical status buckets.
type Grouper interface {
	GroupByStatus(ctx context.Context, issues []domain.Issue) map[domain.CanonicalStatus][]domain.Issue
}

// Generator runs the digest pipeline for one (chat, queue) pair: resolve
// window, fetch, filter, classify, summarize, compose, render, log.
type Generator struct {
	source     IssueSource
	logs       LogStore
	grouper    Grouper
	summarizer Summarizer // nil means template summaries only
	renderer   Renderer
	webBaseURL string
	now        func() time.Time
}

func NewGenerator(source IssueSource, logs LogStore, grouper Grouper, summarizer Summarizer, renderer Renderer, webBaseURL string) *Generator {
	return &Generator{
		source:     source,
		logs:       logs,
		grouper:    grouper,
		summarizer: summarizer,
		renderer:   renderer,
		webBaseURL: webBaseURL,
		now:        time.Now,
	}
}

// Progress stages reported to onProgress. Advisory only: a UI may show
// them, nothing may depend on them.
const (
	StageFetching  = "Fetching data from the tracker..."
	StageGrouping  = "Grouping issues by status..."
	StageAnalyzing = "Analyzing changes..."
	StageComposing = "Composing the digest..."
)

// Generate produces the rendered digest text for one queue. It never
// returns an error: external-service failures come back as a rendered
// error report naming the queue, so the scheduler always has something to
// deliver.
func (g *Generator) Generate(ctx context.Context, chatID, queueKey string, lookbackHours int, onProgress func(stage string)) string {
	progress := func(stage string) {
		if onProgress != nil {
			onProgress(stage)
		}
	}

	window := ResolveWindow(g.logs, chatID, queueKey, lookbackHours, g.now())

	progress(StageFetching)
	allIssues, err := g.source.ListQueueIssues(ctx, queueKey)
	if err != nil {
		log.Printf("digest fetch failed chat=%s queue=%s: %v", chatID, queueKey, err)
		return g.renderer.RenderError(queueKey, QueueURL(g.webBaseURL, queueKey))
	}
	log.Printf("digest fetched chat=%s queue=%s issues=%d window=%q", chatID, queueKey, len(allIssues), window.Description)

	if len(allIssues) == 0 {
		return g.renderer.Render(ComposeEmptyQueue(g.webBaseURL, queueKey, window.Description, g.now()))
	}

	recent := FilterByWindow(allIssues, window.Cutoff)
	if len(recent) == 0 {
		return g.renderer.Render(ComposeNoChanges(g.webBaseURL, queueKey, window.Description, g.now()))
	}

	progress(StageGrouping)
	groups := g.grouper.GroupByStatus(ctx, recent)

	progress(StageAnalyzing)
	data := SummaryData{
		QueueKey:          queueKey,
		WindowDescription: window.Description,
		Groups:            groups,
		TotalIssues:       len(recent),
		FirstDigest:       window.First,
	}
	summary := g.summarize(ctx, data)

	progress(StageComposing)
	report := Compose(g.webBaseURL, queueKey, groups, summary, window.Description, g.now())
	text := g.renderer.Render(report)

	// A digest already generated must reach the user even if logging it
	// fails; the next window is then wider than ideal, which is accepted.
	if err := g.logs.AppendDigestLog(domain.DigestLogRecord{
		ChatID:      chatID,
		QueueKey:    queueKey,
		DigestText:  text,
		IssuesCount: len(recent),
	}); err != nil {
		log.Printf("digest log append failed chat=%s queue=%s: %v", chatID, queueKey, err)
	}

	return text
}

func (g *Generator) summarize(ctx context.Context, data SummaryData) string {
	if g.summarizer != nil {
		summary, err := g.summarizer.Summarize(ctx, data)
		if err == nil {
			return summary
		}
		log.Printf("digest summarizer failed queue=%s: %v", data.QueueKey, err)
	}
	return TemplateSummary(data)
}

package digest

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"digestbot/internal/domain"
)

type fakeSource struct {
	issues []domain.Issue
	err    error
	calls  int
}

func (s *fakeSource) ListQueueIssues(ctx context.Context, queueKey string) ([]domain.Issue, error) {
	s.calls++
	return s.issues, s.err
}

// plainRenderer encodes report fields into an inspectable string.
type plainRenderer struct{}

func (plainRenderer) Render(r *Report) string {
	if r.EmptyQueue {
		return fmt.Sprintf("[%s %s] No issues in queue.", r.QueueKey, r.WindowDescription)
	}
	if r.NoChanges {
		return fmt.Sprintf("[%s %s] No changes in this period.", r.QueueKey, r.WindowDescription)
	}
	var groups []string
	for _, g := range r.Groups {
		var keys []string
		for _, issue := range g.Issues {
			keys = append(keys, issue.Key)
		}
		groups = append(groups, fmt.Sprintf("%s:%s", g.Status, strings.Join(keys, ",")))
	}
	return fmt.Sprintf("[%s %s] summary=%q participants=%s groups=%s",
		r.QueueKey, r.WindowDescription, r.Summary, strings.Join(r.Participants, ","), strings.Join(groups, " "))
}

func (plainRenderer) RenderError(queueKey, queueURL string) string {
	return fmt.Sprintf("Could not generate digest for queue %s", queueKey)
}

type keywordGrouper struct{}

func (keywordGrouper) GroupByStatus(ctx context.Context, issues []domain.Issue) map[domain.CanonicalStatus][]domain.Issue {
	groups := make(map[domain.CanonicalStatus][]domain.Issue)
	for _, issue := range issues {
		status := domain.StatusNew
		switch strings.ToLower(issue.Status) {
		case "closed", "done":
			status = domain.StatusDone
		case "open", "in progress":
			status = domain.StatusInProgress
		}
		groups[status] = append(groups[status], issue)
	}
	return groups
}

func newTestGenerator(source *fakeSource, logs *fakeLogStore) *Generator {
	g := NewGenerator(source, logs, keywordGrouper{}, nil, plainRenderer{}, "https://tracker.yandex.ru")
	g.now = func() time.Time { return time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC) }
	return g
}

func TestGenerateEmptyQueue(t *testing.T) {
	source := &fakeSource{}
	logs := &fakeLogStore{}
	g := newTestGenerator(source, logs)

	got := g.Generate(context.Background(), "chat-1", "PROJ", 24, nil)

	if !strings.Contains(got, "No issues in queue.") {
		t.Fatalf("expected empty-queue marker, got %q", got)
	}
	if len(logs.appended) != 0 {
		t.Fatalf("empty-queue digest must not be logged, got %d records", len(logs.appended))
	}
}

func TestGenerateNoChanges(t *testing.T) {
	old := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	source := &fakeSource{issues: []domain.Issue{
		{Key: "PROJ-1", Status: "Open", UpdatedAt: old},
		{Key: "PROJ-2", Status: "Closed", UpdatedAt: old},
		{Key: "PROJ-3", Status: "Closed", UpdatedAt: old},
	}}
	logs := &fakeLogStore{}
	g := newTestGenerator(source, logs)

	got := g.Generate(context.Background(), "chat-1", "PROJ", 24, nil)

	if !strings.Contains(got, "No changes in this period.") {
		t.Fatalf("expected no-changes marker, got %q", got)
	}
	if len(logs.appended) != 0 {
		t.Fatalf("no-changes digest must not be logged, got %d records", len(logs.appended))
	}
}

func TestGenerateFullPipeline(t *testing.T) {
	recent := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	source := &fakeSource{issues: []domain.Issue{
		{Key: "PROJ-1", Summary: "Ship it", Status: "Closed", Assignee: "Alice", UpdatedAt: recent},
		{Key: "PROJ-2", Summary: "Keep going", Status: "Open", Assignee: "Alice", UpdatedAt: recent},
		{Key: "PROJ-3", Summary: "Mystery", Status: "Weird", Assignee: domain.Unassigned}, // no timestamp: fail-open
	}}
	logs := &fakeLogStore{clock: func() time.Time { return time.Date(2024, 3, 11, 9, 0, 1, 0, time.UTC) }}
	g := newTestGenerator(source, logs)

	var stages []string
	got := g.Generate(context.Background(), "chat-1", "PROJ", 24, func(stage string) {
		stages = append(stages, stage)
	})

	if !strings.Contains(got, "groups=New:PROJ-3 In Progress:PROJ-2 Done:PROJ-1") {
		t.Fatalf("unexpected groups in %q", got)
	}
	if !strings.Contains(got, "participants=Alice") {
		t.Fatalf("expected single participant Alice in %q", got)
	}

	wantStages := []string{StageFetching, StageGrouping, StageAnalyzing, StageComposing}
	if !reflect.DeepEqual(stages, wantStages) {
		t.Fatalf("stages = %v, want %v", stages, wantStages)
	}

	if len(logs.appended) != 1 {
		t.Fatalf("expected one log record, got %d", len(logs.appended))
	}
	rec := logs.appended[0]
	if rec.ChatID != "chat-1" || rec.QueueKey != "PROJ" || rec.IssuesCount != 3 {
		t.Fatalf("log record = %+v", rec)
	}
	if rec.DigestText != got {
		t.Fatal("logged text must equal the delivered text")
	}
}

func TestGenerateSecondRunWindowFollowsFirst(t *testing.T) {
	recent := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	source := &fakeSource{issues: []domain.Issue{
		{Key: "PROJ-1", Summary: "Ship it", Status: "Closed", UpdatedAt: recent},
	}}
	logged := time.Date(2024, 3, 11, 9, 0, 1, 0, time.UTC)
	logs := &fakeLogStore{clock: func() time.Time { return logged }}
	g := newTestGenerator(source, logs)
	ctx := context.Background()

	first := g.Generate(ctx, "chat-1", "PROJ", 24, nil)
	if !strings.Contains(first, "for the last 24 hours") {
		t.Fatalf("first digest window = %q, want default lookback", first)
	}

	second := g.Generate(ctx, "chat-1", "PROJ", 24, nil)
	if !strings.Contains(second, "since 11.03.2024 09:00") {
		t.Fatalf("second digest window = %q, want since-first-digest", second)
	}
	if len(logs.appended) != 1 {
		// The issue predates the new cutoff, so the second run is a
		// no-changes digest and appends nothing.
		t.Fatalf("expected 1 log record, got %d", len(logs.appended))
	}
}

func TestGenerateFetchErrorReturnsErrorReport(t *testing.T) {
	source := &fakeSource{err: fmt.Errorf("connection refused")}
	logs := &fakeLogStore{}
	g := newTestGenerator(source, logs)

	got := g.Generate(context.Background(), "chat-1", "PROJ", 24, nil)

	if want := "Could not generate digest for queue PROJ"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if len(logs.appended) != 0 {
		t.Fatal("failed digest must not be logged")
	}
}

func TestGenerateLogAppendFailureStillDelivers(t *testing.T) {
	recent := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	source := &fakeSource{issues: []domain.Issue{
		{Key: "PROJ-1", Summary: "Ship it", Status: "Closed", UpdatedAt: recent},
	}}
	logs := &fakeLogStore{appendErr: fmt.Errorf("disk full")}
	g := newTestGenerator(source, logs)

	got := g.Generate(context.Background(), "chat-1", "PROJ", 24, nil)

	if !strings.Contains(got, "Done:PROJ-1") {
		t.Fatalf("digest must survive a log append failure, got %q", got)
	}
}

type erroringSummarizer struct{}

func (erroringSummarizer) Summarize(ctx context.Context, data SummaryData) (string, error) {
	return "", fmt.Errorf("model timeout")
}

func TestGenerateSummarizerFailureFallsBackToTemplate(t *testing.T) {
	recent := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	source := &fakeSource{issues: []domain.Issue{
		{Key: "PROJ-1", Summary: "Ship it", Status: "Closed", Assignee: "Alice", UpdatedAt: recent},
	}}
	logs := &fakeLogStore{}
	g := newTestGenerator(source, logs)
	g.summarizer = erroringSummarizer{}

	got := g.Generate(context.Background(), "chat-1", "PROJ", 24, nil)

	if !strings.Contains(got, `summary="Completed PROJ-1: Ship it (Alice)."`) {
		t.Fatalf("expected template summary fallback, got %q", got)
	}
}

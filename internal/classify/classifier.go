package classify

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"digestbot/internal/domain"
)

// Backend is an optional intelligent classifier. It may be slow and it may
// fail; the keyword fallback below is always available.
type Backend interface {
	ClassifyStatus(ctx context.Context, rawStatus string) (domain.CanonicalStatus, error)
}

const defaultBackendTimeout = 30 * time.Second

// Classifier maps raw tracker status strings to canonical statuses. Each
// distinct raw string is resolved once per classifier instance and cached;
// the cache is shared across concurrent digest generations.
type Classifier struct {
	backend Backend // nil disables the intelligent path
	timeout time.Duration

	mu    sync.Mutex
	cache map[string]domain.CanonicalStatus
}

func New(backend Backend, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = defaultBackendTimeout
	}
	return &Classifier{
		backend: backend,
		timeout: timeout,
		cache:   make(map[string]domain.CanonicalStatus),
	}
}

// Classify resolves one raw status. Cache first, then the backend with a
// bounded timeout, then the keyword fallback. The resolved value is cached
// under the original raw string.
func (c *Classifier) Classify(ctx context.Context, rawStatus string) domain.CanonicalStatus {
	c.mu.Lock()
	if cached, ok := c.cache[rawStatus]; ok {
		c.mu.Unlock()
		return cached
	}
	c.mu.Unlock()

	status, resolved := domain.StatusNew, false
	if c.backend != nil {
		backendCtx, cancel := context.WithTimeout(ctx, c.timeout)
		got, err := c.backend.ClassifyStatus(backendCtx, rawStatus)
		cancel()
		if err != nil {
			log.Printf("classify backend error status=%q: %v", rawStatus, err)
		} else {
			status, resolved = got, true
		}
	}
	if !resolved {
		status = FallbackClassify(rawStatus)
	}

	c.mu.Lock()
	c.cache[rawStatus] = status
	c.mu.Unlock()
	return status
}

// GroupByStatus partitions issues into canonical buckets, preserving the
// source order within each bucket. Every issue lands in exactly one bucket.
func (c *Classifier) GroupByStatus(ctx context.Context, issues []domain.Issue) map[domain.CanonicalStatus][]domain.Issue {
	groups := make(map[domain.CanonicalStatus][]domain.Issue, len(domain.CanonicalStatuses))
	for _, issue := range issues {
		status := c.Classify(ctx, issue.Status)
		groups[status] = append(groups[status], issue)
	}
	return groups
}

// keywordSet rows are evaluated in order: a completed status must win over
// ambiguous terms like "blocked-but-resolved".
type keywordSet struct {
	status domain.CanonicalStatus
	words  []string
}

var fallbackKeywords = []keywordSet{
	{domain.StatusDone, []string{
		"done", "готово", "complete", "завершено", "решено", "resolved",
		"closed", "закрыто", "выполнено", "finished", "готов", "завершен",
	}},
	{domain.StatusInReview, []string{
		"review", "тест", "testing", "проверка", "ревью", "code review", "на проверке",
	}},
	{domain.StatusInProgress, []string{
		"progress", "в работе", "in progress", "работа", "выполняется",
		"в процессе", "developing", "открыта", "open",
	}},
	{domain.StatusCancelled, []string{
		"blocked", "блок", "block", "заблокировано", "information required",
		"need info", "info needed", "waiting", "ожидание", "отменена", "cancelled",
	}},
	{domain.StatusNew, []string{
		"todo", "to do", "новая", "new", "к выполнению", "backlog", "ready",
	}},
}

// FallbackClassify is the deterministic keyword classifier. Raw statuses
// matching no keyword set degrade to New.
func FallbackClassify(rawStatus string) domain.CanonicalStatus {
	lower := strings.ToLower(strings.TrimSpace(rawStatus))
	if lower == "" {
		return domain.StatusNew
	}
	for _, set := range fallbackKeywords {
		for _, word := range set.words {
			if strings.Contains(lower, word) {
				return set.status
			}
		}
	}
	return domain.StatusNew
}

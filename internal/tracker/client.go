package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"digestbot/internal/domain"
	"digestbot/internal/httpx"
)

const issuesPerPage = 100

// Client talks to a Yandex-Tracker-compatible HTTP API. It returns empty
// slices for empty queues and errors only on connectivity or protocol
// failures.
type Client struct {
	apiURL     string
	token      string
	orgID      string
	cloudOrgID string
	http       *http.Client
}

func NewClient(apiURL, token, orgID, cloudOrgID string) *Client {
	return &Client{
		apiURL:     apiURL,
		token:      token,
		orgID:      orgID,
		cloudOrgID: cloudOrgID,
		http:       httpx.ExternalHTTPClient(),
	}
}

type issueItem struct {
	ID       string        `json:"id"`
	Key      string        `json:"key"`
	Summary  string        `json:"summary"`
	Status   *displayField `json:"status"`
	Assignee *displayField `json:"assignee"`
	Updated  string        `json:"updatedAt"`
}

type displayField struct {
	Display string `json:"display"`
}

type queueItem struct {
	ID   json.Number `json:"id"`
	Key  string      `json:"key"`
	Name string      `json:"name"`
}

// ListQueueIssues fetches every issue of a queue, unfiltered. The caller
// filters by time window locally: the remote system's own timestamp
// filtering is unreliable across locales, and issues completed before the
// window still need to be discoverable.
func (c *Client) ListQueueIssues(ctx context.Context, queueKey string) ([]domain.Issue, error) {
	query := fmt.Sprintf("Queue: %q", queueKey)

	var issues []domain.Issue
	page := 1
	for {
		reqBody, err := json.Marshal(map[string]string{"query": query})
		if err != nil {
			return nil, fmt.Errorf("marshaling search request: %w", err)
		}

		apiURL := fmt.Sprintf("%s/v2/issues/_search?perPage=%d&page=%d", c.apiURL, issuesPerPage, page)
		req, err := http.NewRequestWithContext(ctx, "POST", apiURL, bytes.NewReader(reqBody))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		c.setHeaders(req)

		var items []issueItem
		if err := c.doJSON(req, &items); err != nil {
			return nil, fmt.Errorf("searching issues in %s: %w", queueKey, err)
		}

		for _, item := range items {
			issues = append(issues, convertIssue(item, queueKey))
		}

		if len(items) < issuesPerPage {
			break
		}
		page++
	}

	log.Printf("tracker fetch queue=%s issues=%d", queueKey, len(issues))
	return issues, nil
}

// ListQueues returns every queue visible to the token.
func (c *Client) ListQueues(ctx context.Context) ([]domain.Queue, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.apiURL+"/v2/queues", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	var items []queueItem
	if err := c.doJSON(req, &items); err != nil {
		return nil, fmt.Errorf("listing queues: %w", err)
	}

	queues := make([]domain.Queue, 0, len(items))
	for _, item := range items {
		queues = append(queues, domain.Queue{ID: item.ID.String(), Key: item.Key, Name: item.Name})
	}
	return queues, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "OAuth "+c.token)
	req.Header.Set("Content-Type", "application/json")
	if c.cloudOrgID != "" {
		req.Header.Set("X-Cloud-Org-ID", c.cloudOrgID)
	} else if c.orgID != "" {
		req.Header.Set("X-Org-ID", c.orgID)
	}
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("tracker API returned %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

func convertIssue(item issueItem, queueKey string) domain.Issue {
	issue := domain.Issue{
		ID:       item.ID,
		Key:      item.Key,
		Summary:  item.Summary,
		Status:   "Unknown",
		Assignee: domain.Unassigned,
		QueueKey: queueKey,
	}
	if item.Status != nil && item.Status.Display != "" {
		issue.Status = item.Status.Display
	}
	if item.Assignee != nil && item.Assignee.Display != "" {
		issue.Assignee = item.Assignee.Display
	}
	issue.UpdatedAt = parseIssueTime(item.Updated)
	return issue
}

// tracker timestamps come in a few shapes depending on instance locale;
// an unparsable value stays zero, which downstream treats as "changed".
var issueTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseIssueTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range issueTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	log.Printf("tracker unparsable timestamp %q", s)
	return time.Time{}
}

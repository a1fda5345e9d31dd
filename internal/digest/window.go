package digest

import (
	"fmt"
	"log"
	"time"

	"digestbot/internal/domain"
)

// LogStore is the append-only digest log the pipeline reads its windows
// from and writes its results to.
type LogStore interface {
	LastDigestLog(chatID, queueKey string) (*domain.DigestLogRecord, error)
	AppendDigestLog(rec domain.DigestLogRecord) error
}

// Window bounds "what's new" for one digest run. The cutoff is an
// inclusive lower bound: an issue updated exactly at the cutoff counts.
type Window struct {
	Cutoff      time.Time
	Description string
	First       bool // no prior digest existed for the pair
}

const windowTimeLayout = "02.01.2006 15:04"

// ResolveWindow determines the cutoff for (chat, queue): the previous
// digest's creation time when one exists, otherwise now minus the default
// lookback. A log lookup failure degrades to the lookback window rather
// than failing the pipeline; a missed boundary widens the report, it never
// narrows it.
func ResolveWindow(logs LogStore, chatID, queueKey string, lookbackHours int, now time.Time) Window {
	last, err := logs.LastDigestLog(chatID, queueKey)
	if err != nil {
		log.Printf("digest window lookup failed chat=%s queue=%s: %v", chatID, queueKey, err)
		last = nil
	}

	if last != nil {
		cutoff := last.CreatedAt.UTC()
		return Window{
			Cutoff:      cutoff,
			Description: fmt.Sprintf("since %s", cutoff.Format(windowTimeLayout)),
			First:       false,
		}
	}

	return Window{
		Cutoff:      now.UTC().Add(-time.Duration(lookbackHours) * time.Hour),
		Description: fmt.Sprintf("for the last %d hours", lookbackHours),
		First:       true,
	}
}

// FilterByWindow keeps issues updated at or after the cutoff. Issues with
// no usable timestamp are kept: a false positive is better than a silently
// dropped change.
func FilterByWindow(issues []domain.Issue, cutoff time.Time) []domain.Issue {
	var recent []domain.Issue
	for _, issue := range issues {
		if issue.UpdatedAt.IsZero() || !issue.UpdatedAt.Before(cutoff) {
			recent = append(recent, issue)
		}
	}
	return recent
}

package domain

import "time"

// Unassigned is the sentinel assignee value the tracker returns when an
// issue has no assignee. It is never rendered as a participant.
const Unassigned = "Unassigned"

// Issue is an immutable snapshot of one tracked work item, constructed
// fresh on every fetch and discarded after a single digest cycle.
type Issue struct {
	ID       string
	Key      string // queue-scoped human identifier, e.g. "PROJ-42"
	Summary  string
	Status   string // raw status string from the source system
	Assignee string // Unassigned sentinel when nobody is assigned
	QueueKey string
	// UpdatedAt is zero when the tracker returned no usable timestamp.
	// Such issues are treated as changed.
	UpdatedAt time.Time
}

// Queue identifies one named collection of work items in the tracker.
type Queue struct {
	ID   string
	Key  string
	Name string
}

// DigestLogRecord is one append-only entry in the digest log. The most
// recent record per (chat, queue) drives the next time window.
type DigestLogRecord struct {
	ChatID      string
	QueueKey    string
	DigestText  string
	IssuesCount int
	CreatedAt   time.Time // server-assigned
}

// UserScheduleEntry holds a user's preferred daily digest time.
type UserScheduleEntry struct {
	ChatID    string
	TimeOfDay string // HH:MM, 24h, interpreted as UTC
}

// UserQueue is one queue subscription of a user. Position preserves the
// order queues were added in; digests are generated in that order.
type UserQueue struct {
	ChatID    string
	QueueKey  string
	QueueName string
	Position  int
}

package sqlite

import (
	"path/filepath"
	"testing"

	"digestbot/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestUpsertScheduleInsertAndUpdate(t *testing.T) {
	store := newTestStore(t)

	if err := store.UpsertSchedule(domain.UserScheduleEntry{ChatID: "chat-1", TimeOfDay: "10:30"}); err != nil {
		t.Fatalf("UpsertSchedule: %v", err)
	}
	if err := store.UpsertSchedule(domain.UserScheduleEntry{ChatID: "chat-1", TimeOfDay: "18:00"}); err != nil {
		t.Fatalf("UpsertSchedule update: %v", err)
	}

	entries, err := store.ListSchedules()
	if err != nil {
		t.Fatalf("ListSchedules: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].ChatID != "chat-1" || entries[0].TimeOfDay != "18:00" {
		t.Fatalf("entry = %+v, want chat-1 at 18:00", entries[0])
	}
}

func TestListSchedulesSkipsUsersWithoutTime(t *testing.T) {
	store := newTestStore(t)

	// Subscribing to a queue creates the user row with an empty digest time.
	if err := store.AddUserQueue("chat-1", "PROJ", "Project"); err != nil {
		t.Fatalf("AddUserQueue: %v", err)
	}
	if err := store.UpsertSchedule(domain.UserScheduleEntry{ChatID: "chat-2", TimeOfDay: "09:30"}); err != nil {
		t.Fatalf("UpsertSchedule: %v", err)
	}

	entries, err := store.ListSchedules()
	if err != nil {
		t.Fatalf("ListSchedules: %v", err)
	}
	if len(entries) != 1 || entries[0].ChatID != "chat-2" {
		t.Fatalf("entries = %+v, want only chat-2", entries)
	}

	ids, err := store.ListChatIDs()
	if err != nil {
		t.Fatalf("ListChatIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ListChatIDs = %v, want both users", ids)
	}
}

func TestUserQueuesOrderAndRemoval(t *testing.T) {
	store := newTestStore(t)

	for _, key := range []string{"GAMMA", "ALPHA", "BETA"} {
		if err := store.AddUserQueue("chat-1", key, key+" queue"); err != nil {
			t.Fatalf("AddUserQueue(%s): %v", key, err)
		}
	}

	queues, err := store.ListUserQueues("chat-1")
	if err != nil {
		t.Fatalf("ListUserQueues: %v", err)
	}
	var keys []string
	for _, q := range queues {
		keys = append(keys, q.QueueKey)
	}
	want := []string{"GAMMA", "ALPHA", "BETA"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("queue order = %v, want insertion order %v", keys, want)
		}
	}

	if err := store.RemoveUserQueue("chat-1", "ALPHA"); err != nil {
		t.Fatalf("RemoveUserQueue: %v", err)
	}
	queues, err = store.ListUserQueues("chat-1")
	if err != nil {
		t.Fatalf("ListUserQueues after removal: %v", err)
	}
	if len(queues) != 2 || queues[0].QueueKey != "GAMMA" || queues[1].QueueKey != "BETA" {
		t.Fatalf("queues after removal = %+v", queues)
	}
}

func TestAddUserQueueReAddRefreshesName(t *testing.T) {
	store := newTestStore(t)

	if err := store.AddUserQueue("chat-1", "PROJ", "Old name"); err != nil {
		t.Fatalf("AddUserQueue: %v", err)
	}
	if err := store.AddUserQueue("chat-1", "PROJ", "New name"); err != nil {
		t.Fatalf("AddUserQueue re-add: %v", err)
	}

	queues, err := store.ListUserQueues("chat-1")
	if err != nil {
		t.Fatalf("ListUserQueues: %v", err)
	}
	if len(queues) != 1 {
		t.Fatalf("got %d subscriptions, want 1", len(queues))
	}
	if queues[0].QueueName != "New name" {
		t.Fatalf("queue name = %q, want refreshed name", queues[0].QueueName)
	}
}

func TestQueuesIsolatedPerUser(t *testing.T) {
	store := newTestStore(t)

	if err := store.AddUserQueue("chat-1", "PROJ", ""); err != nil {
		t.Fatalf("AddUserQueue: %v", err)
	}
	if err := store.AddUserQueue("chat-2", "OPS", ""); err != nil {
		t.Fatalf("AddUserQueue: %v", err)
	}

	queues, err := store.ListUserQueues("chat-1")
	if err != nil {
		t.Fatalf("ListUserQueues: %v", err)
	}
	if len(queues) != 1 || queues[0].QueueKey != "PROJ" {
		t.Fatalf("chat-1 queues = %+v, want only PROJ", queues)
	}
}

func TestLastDigestLog(t *testing.T) {
	store := newTestStore(t)

	rec, err := store.LastDigestLog("chat-1", "PROJ")
	if err != nil {
		t.Fatalf("LastDigestLog: %v", err)
	}
	if rec != nil {
		t.Fatalf("got %+v before any digest, want nil", rec)
	}

	if err := store.AppendDigestLog(domain.DigestLogRecord{ChatID: "chat-1", QueueKey: "PROJ", DigestText: "first", IssuesCount: 3}); err != nil {
		t.Fatalf("AppendDigestLog: %v", err)
	}
	if err := store.AppendDigestLog(domain.DigestLogRecord{ChatID: "chat-1", QueueKey: "PROJ", DigestText: "second", IssuesCount: 5}); err != nil {
		t.Fatalf("AppendDigestLog: %v", err)
	}
	if err := store.AppendDigestLog(domain.DigestLogRecord{ChatID: "chat-1", QueueKey: "OPS", DigestText: "other queue", IssuesCount: 1}); err != nil {
		t.Fatalf("AppendDigestLog: %v", err)
	}

	rec, err = store.LastDigestLog("chat-1", "PROJ")
	if err != nil {
		t.Fatalf("LastDigestLog: %v", err)
	}
	if rec == nil {
		t.Fatal("got nil, want the latest record")
	}
	if rec.DigestText != "second" || rec.IssuesCount != 5 {
		t.Fatalf("record = %+v, want the second digest", rec)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatal("created_at must be assigned by the database")
	}
}

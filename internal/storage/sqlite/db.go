package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"digestbot/internal/domain"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS users (
		chat_id     TEXT PRIMARY KEY,
		digest_time TEXT NOT NULL DEFAULT '09:00',
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS queues (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id    TEXT NOT NULL,
		queue_key  TEXT NOT NULL,
		queue_name TEXT DEFAULT '',
		position   INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(chat_id, queue_key)
	);
	CREATE INDEX IF NOT EXISTS idx_queues_chat ON queues(chat_id);

	CREATE TABLE IF NOT EXISTS digest_logs (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id      TEXT NOT NULL,
		queue_key    TEXT NOT NULL,
		digest_text  TEXT DEFAULT '',
		issues_count INTEGER NOT NULL DEFAULT 0,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_digest_logs_lookup ON digest_logs(chat_id, queue_key, created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}

	return db, nil
}

// Store exposes the persisted state the scheduler and the digest pipeline
// depend on: schedule entries, queue subscriptions and the digest log.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// UpsertSchedule creates the user row if needed and sets its digest time.
func (s *Store) UpsertSchedule(entry domain.UserScheduleEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO users (chat_id, digest_time) VALUES (?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET digest_time = excluded.digest_time, updated_at = CURRENT_TIMESTAMP`,
		entry.ChatID, entry.TimeOfDay,
	)
	return err
}

func (s *Store) ListSchedules() ([]domain.UserScheduleEntry, error) {
	rows, err := s.db.Query(`SELECT chat_id, digest_time FROM users WHERE digest_time != '' ORDER BY chat_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.UserScheduleEntry
	for rows.Next() {
		var e domain.UserScheduleEntry
		if err := rows.Scan(&e.ChatID, &e.TimeOfDay); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListChatIDs returns every known subscriber, scheduled or not.
func (s *Store) ListChatIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT chat_id FROM users ORDER BY chat_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddUserQueue subscribes a user to a queue, appending it after the user's
// existing subscriptions. Re-adding an already subscribed queue only
// refreshes its display name.
func (s *Store) AddUserQueue(chatID, queueKey, queueName string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO users (chat_id, digest_time) VALUES (?, '')`, chatID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO queues (chat_id, queue_key, queue_name, position)
		 VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM queues WHERE chat_id = ?))
		 ON CONFLICT(chat_id, queue_key) DO UPDATE SET queue_name = excluded.queue_name`,
		chatID, queueKey, queueName, chatID,
	)
	return err
}

func (s *Store) RemoveUserQueue(chatID, queueKey string) error {
	_, err := s.db.Exec(`DELETE FROM queues WHERE chat_id = ? AND queue_key = ?`, chatID, queueKey)
	return err
}

// ListUserQueues returns a user's subscriptions in the order they were added.
func (s *Store) ListUserQueues(chatID string) ([]domain.UserQueue, error) {
	rows, err := s.db.Query(
		`SELECT chat_id, queue_key, queue_name, position FROM queues WHERE chat_id = ? ORDER BY position, id`,
		chatID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var queues []domain.UserQueue
	for rows.Next() {
		var q domain.UserQueue
		if err := rows.Scan(&q.ChatID, &q.QueueKey, &q.QueueName, &q.Position); err != nil {
			return nil, err
		}
		queues = append(queues, q)
	}
	return queues, rows.Err()
}

// AppendDigestLog records one generated digest. created_at is assigned by
// the database, not the caller.
func (s *Store) AppendDigestLog(rec domain.DigestLogRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO digest_logs (chat_id, queue_key, digest_text, issues_count) VALUES (?, ?, ?, ?)`,
		rec.ChatID, rec.QueueKey, rec.DigestText, rec.IssuesCount,
	)
	if err != nil {
		return fmt.Errorf("appending digest log: %w", err)
	}
	return nil
}

// LastDigestLog returns the most recent digest log record for the pair, or
// nil when the user has never received a digest for the queue.
func (s *Store) LastDigestLog(chatID, queueKey string) (*domain.DigestLogRecord, error) {
	var rec domain.DigestLogRecord
	var createdAt time.Time
	err := s.db.QueryRow(
		`SELECT chat_id, queue_key, digest_text, issues_count, created_at
		 FROM digest_logs WHERE chat_id = ? AND queue_key = ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		chatID, queueKey,
	).Scan(&rec.ChatID, &rec.QueueKey, &rec.DigestText, &rec.IssuesCount, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = createdAt.UTC()
	return &rec, nil
}

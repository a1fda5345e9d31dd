package schedule

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"digestbot/internal/config"
	"digestbot/internal/domain"
)

// Store is the persisted scheduling state: per-user digest times and queue
// subscriptions.
type Store interface {
	ListSchedules() ([]domain.UserScheduleEntry, error)
	UpsertSchedule(entry domain.UserScheduleEntry) error
	ListChatIDs() ([]string, error)
	ListUserQueues(chatID string) ([]domain.UserQueue, error)
}

// Sink delivers rendered digests to the chat channel.
type Sink interface {
	Send(ctx context.Context, chatID, text string, richFormat bool) error
}

// Generator produces the digest text for one (chat, queue) pair. It never
// fails: error conditions come back as user-facing report text.
type Generator interface {
	Generate(ctx context.Context, chatID, queueKey string, lookbackHours int, onProgress func(stage string)) string
}

const fireTimeout = 5 * time.Minute

// Registry owns the live set of per-user daily digest jobs plus one
// global fallback job. At most one job exists per chat at any time;
// replacing a schedule is a single remove+add critical section.
type Registry struct {
	store         Store
	sink          Sink
	gen           Generator
	lookbackHours int
	defaultTime   string // HH:MM for the global fallback job

	cron *cron.Cron

	mu      sync.Mutex
	jobs    map[string]cron.EntryID // keyed by chatID
	started bool
}

func NewRegistry(store Store, sink Sink, gen Generator, lookbackHours int, defaultTime string) *Registry {
	return &Registry{
		store:         store,
		sink:          sink,
		gen:           gen,
		lookbackHours: lookbackHours,
		defaultTime:   defaultTime,
		cron:          cron.New(cron.WithLocation(time.UTC)),
		jobs:          make(map[string]cron.EntryID),
	}
}

// Start installs the global fallback job, loads every persisted schedule
// into a per-user job, and starts the timer dispatcher. A malformed
// persisted entry is skipped, it does not abort startup.
func (r *Registry) Start() error {
	spec, err := cronSpec(r.defaultTime)
	if err != nil {
		return fmt.Errorf("invalid default digest time '%s': %v", r.defaultTime, err)
	}
	if _, err := r.cron.AddFunc(spec, r.fireGlobal); err != nil {
		return fmt.Errorf("scheduling global digest job: %w", err)
	}
	log.Printf("schedule global job installed at %s UTC", r.defaultTime)

	entries, err := r.store.ListSchedules()
	if err != nil {
		return fmt.Errorf("loading schedules: %w", err)
	}
	for _, entry := range entries {
		if err := r.installJob(entry.ChatID, entry.TimeOfDay); err != nil {
			log.Printf("schedule skipped chat=%s time=%q: %v", entry.ChatID, entry.TimeOfDay, err)
			continue
		}
		log.Printf("schedule job installed chat=%s time=%s", entry.ChatID, entry.TimeOfDay)
	}

	r.mu.Lock()
	r.started = true
	r.mu.Unlock()
	r.cron.Start()
	log.Printf("schedule registry started jobs=%d", len(entries))
	return nil
}

// Stop cancels all pending timers. In-flight digest runs finish on their
// own timeout. Safe to call before Start.
func (r *Registry) Stop() {
	r.mu.Lock()
	started := r.started
	r.started = false
	r.mu.Unlock()
	if !started {
		return
	}
	ctx := r.cron.Stop()
	<-ctx.Done()
	log.Println("schedule registry stopped")
}

// UpsertSchedule validates and persists a user's digest time, then
// atomically replaces any existing job for that chat. Returns false when
// the time is malformed or persistence fails; no job is touched in either
// case.
func (r *Registry) UpsertSchedule(chatID, timeOfDay string) bool {
	if _, _, err := config.ParseClock(timeOfDay); err != nil {
		log.Printf("schedule rejected chat=%s time=%q: %v", chatID, timeOfDay, err)
		return false
	}

	if err := r.store.UpsertSchedule(domain.UserScheduleEntry{ChatID: chatID, TimeOfDay: timeOfDay}); err != nil {
		log.Printf("schedule persist failed chat=%s: %v", chatID, err)
		return false
	}

	if err := r.installJob(chatID, timeOfDay); err != nil {
		// installJob only fails on a malformed time, which ParseClock
		// already excluded.
		log.Printf("schedule install failed chat=%s: %v", chatID, err)
		return false
	}
	log.Printf("schedule updated chat=%s time=%s", chatID, timeOfDay)
	return true
}

// installJob removes the chat's previous job (if any) and adds the new one
// inside one critical section, so no observer sees zero or two live jobs
// for the same chat.
func (r *Registry) installJob(chatID, timeOfDay string) error {
	spec, err := cronSpec(timeOfDay)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.jobs[chatID]; ok {
		r.cron.Remove(old)
		delete(r.jobs, chatID)
	}
	id, err := r.cron.AddFunc(spec, func() { r.fire(chatID) })
	if err != nil {
		return err
	}
	r.jobs[chatID] = id
	return nil
}

// SendNow generates and delivers all of a user's digests immediately,
// outside any schedule. Progress callbacks go to the sink as plain
// messages.
func (r *Registry) SendNow(ctx context.Context, chatID string) {
	r.fireUser(ctx, chatID, func(stage string) {
		if err := r.sink.Send(ctx, chatID, stage, false); err != nil {
			log.Printf("schedule progress send failed chat=%s: %v", chatID, err)
		}
	})
}

// fire runs one user's scheduled digest delivery.
func (r *Registry) fire(chatID string) {
	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()
	r.fireUser(ctx, chatID, nil)
}

// fireUser generates and delivers a digest for each of the user's queues,
// in persisted order. A failure for one queue never blocks the others.
func (r *Registry) fireUser(ctx context.Context, chatID string, onProgress func(stage string)) {
	queues, err := r.store.ListUserQueues(chatID)
	if err != nil {
		log.Printf("schedule fire chat=%s: loading queues: %v", chatID, err)
		return
	}
	if len(queues) == 0 {
		log.Printf("schedule fire chat=%s: no subscribed queues", chatID)
		return
	}

	for _, queue := range queues {
		text := r.gen.Generate(ctx, chatID, queue.QueueKey, r.lookbackHours, onProgress)
		if text == "" {
			log.Printf("schedule fire chat=%s queue=%s: empty digest", chatID, queue.QueueKey)
			continue
		}
		if err := r.sink.Send(ctx, chatID, text, true); err != nil {
			log.Printf("schedule send failed chat=%s queue=%s: %v", chatID, queue.QueueKey, err)
			continue
		}
		log.Printf("schedule digest delivered chat=%s queue=%s", chatID, queue.QueueKey)
	}
}

// fireGlobal is the safety net for users without an explicit schedule:
// users with their own live job are skipped, everyone else gets the
// default-time delivery. Users are isolated from each other's failures.
func (r *Registry) fireGlobal() {
	chatIDs, err := r.store.ListChatIDs()
	if err != nil {
		log.Printf("schedule global fire: loading users: %v", err)
		return
	}
	log.Printf("schedule global fire users=%d", len(chatIDs))

	for _, chatID := range chatIDs {
		r.mu.Lock()
		_, scheduled := r.jobs[chatID]
		r.mu.Unlock()
		if scheduled {
			continue
		}
		r.fire(chatID)
	}
}

// JobCount reports the number of live per-user jobs.
func (r *Registry) JobCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// cronSpec converts HH:MM into a five-field daily cron expression.
func cronSpec(timeOfDay string) (string, error) {
	hour, min, err := config.ParseClock(timeOfDay)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d * * *", min, hour), nil
}

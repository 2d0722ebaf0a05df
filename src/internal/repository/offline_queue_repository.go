package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/pkg/kvstore"
	"wallet-engine/src/pkg/log"
)

const (
	keyOfflineQueue = "WALLET:OFFLINE_QUEUE:%s"
	keyDeadLetters  = "WALLET:OFFLINE_DLQ:%s"
)

// OfflineQueueRepository keeps transactions awaiting remote acknowledgment in
// FIFO order of queuedAt. It does not deduplicate entries.
type OfflineQueueRepository struct {
	Store kvstore.Store
	Log   log.Log

	mu          sync.Mutex
	userID      string
	entries     []entity.OfflineQueueEntry
	deadLetters []entity.OfflineQueueEntry
}

func NewOfflineQueueRepository(store kvstore.Store, logger log.Log) *OfflineQueueRepository {
	return &OfflineQueueRepository{Store: store, Log: logger}
}

func (r *OfflineQueueRepository) Load(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var entries, dead []entity.OfflineQueueEntry
	if _, err := kvstore.GetJSON(ctx, r.Store, fmt.Sprintf(keyOfflineQueue, userID), &entries); err != nil {
		return fmt.Errorf("load offline queue: %w", err)
	}
	if _, err := kvstore.GetJSON(ctx, r.Store, fmt.Sprintf(keyDeadLetters, userID), &dead); err != nil {
		return fmt.Errorf("load dead letters: %w", err)
	}
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].QueuedAt.Before(entries[b].QueuedAt)
	})
	r.userID = userID
	r.entries = entries
	r.deadLetters = dead
	return nil
}

// Enqueue appends tx and persists the queue before returning.
func (r *OfflineQueueRepository) Enqueue(ctx context.Context, tx entity.Transaction, at time.Time) (entity.OfflineQueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.userID == "" {
		return entity.OfflineQueueEntry{}, model.ErrNotInitialized
	}
	tx.QueuedAt = &at
	entry := entity.OfflineQueueEntry{Transaction: tx, QueuedAt: at}

	prev := r.entries
	r.entries = append(append(make([]entity.OfflineQueueEntry, 0, len(prev)+1), prev...), entry)
	if err := r.persistQueue(ctx); err != nil {
		r.entries = prev
		return entity.OfflineQueueEntry{}, fmt.Errorf("persist offline queue: %w", err)
	}
	return entry, nil
}

// Entries returns a copy of the queue in FIFO order.
func (r *OfflineQueueRepository) Entries() []entity.OfflineQueueEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.OfflineQueueEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *OfflineQueueRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *OfflineQueueRepository) DeadLetters() []entity.OfflineQueueEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.OfflineQueueEntry, len(r.deadLetters))
	copy(out, r.deadLetters)
	return out
}

// Tracks reports whether transactionID is queued or dead-lettered.
func (r *OfflineQueueRepository) Tracks(transactionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOf(transactionID) >= 0 {
		return true
	}
	for _, e := range r.deadLetters {
		if e.Transaction.TransactionID == transactionID {
			return true
		}
	}
	return false
}

// Remove drops the oldest entry carrying transactionID.
func (r *OfflineQueueRepository) Remove(ctx context.Context, transactionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(transactionID)
	if i < 0 {
		return model.NewError(model.KindNotFound, "queued transaction %s not found", transactionID)
	}
	prev := r.entries
	r.entries = without(prev, i)
	if err := r.persistQueue(ctx); err != nil {
		r.entries = prev
		return fmt.Errorf("persist offline queue: %w", err)
	}
	return nil
}

// RecordFailure counts a failed delivery attempt and schedules the next one.
func (r *OfflineQueueRepository) RecordFailure(ctx context.Context, transactionID, reason string, next time.Time) (entity.OfflineQueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(transactionID)
	if i < 0 {
		return entity.OfflineQueueEntry{}, model.NewError(model.KindNotFound, "queued transaction %s not found", transactionID)
	}
	prev := r.entries
	updated := make([]entity.OfflineQueueEntry, len(prev))
	copy(updated, prev)
	updated[i].Attempts++
	updated[i].LastError = reason
	updated[i].NextAttemptAt = &next
	r.entries = updated
	if err := r.persistQueue(ctx); err != nil {
		r.entries = prev
		return entity.OfflineQueueEntry{}, fmt.Errorf("persist offline queue: %w", err)
	}
	return updated[i], nil
}

// DeadLetter moves an entry out of the queue into the dead-letter list. The
// dead-letter list is written first and restored if the queue write fails.
func (r *OfflineQueueRepository) DeadLetter(ctx context.Context, transactionID string) (entity.OfflineQueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(transactionID)
	if i < 0 {
		return entity.OfflineQueueEntry{}, model.NewError(model.KindNotFound, "queued transaction %s not found", transactionID)
	}
	entry := r.entries[i]
	prevEntries, prevDead := r.entries, r.deadLetters
	r.deadLetters = append(append(make([]entity.OfflineQueueEntry, 0, len(prevDead)+1), prevDead...), entry)
	if err := kvstore.SetJSON(ctx, r.Store, fmt.Sprintf(keyDeadLetters, r.userID), r.deadLetters); err != nil {
		r.deadLetters = prevDead
		return entity.OfflineQueueEntry{}, fmt.Errorf("persist dead letters: %w", err)
	}
	r.entries = without(prevEntries, i)
	if err := r.persistQueue(ctx); err != nil {
		r.entries, r.deadLetters = prevEntries, prevDead
		if rbErr := kvstore.SetJSON(ctx, r.Store, fmt.Sprintf(keyDeadLetters, r.userID), prevDead); rbErr != nil {
			r.Log.Error("offline-queue-repository", fmt.Sprintf("failed to roll back dead letters: %v", rbErr), "DeadLetter", transactionID)
		}
		return entity.OfflineQueueEntry{}, fmt.Errorf("persist offline queue: %w", err)
	}
	return entry, nil
}

func (r *OfflineQueueRepository) indexOf(transactionID string) int {
	for i := range r.entries {
		if r.entries[i].Transaction.TransactionID == transactionID {
			return i
		}
	}
	return -1
}

func (r *OfflineQueueRepository) persistQueue(ctx context.Context) error {
	return kvstore.SetJSON(ctx, r.Store, fmt.Sprintf(keyOfflineQueue, r.userID), r.entries)
}

func without(entries []entity.OfflineQueueEntry, i int) []entity.OfflineQueueEntry {
	out := make([]entity.OfflineQueueEntry, 0, len(entries)-1)
	out = append(out, entries[:i]...)
	return append(out, entries[i+1:]...)
}

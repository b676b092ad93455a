// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package outbox

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/taibuivan/librasync/internal/platform/apperr"
)

// MemoryRepository is an in-process [Repository] for tests and local tooling.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	events []*Event
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (repository *MemoryRepository) Insert(_ context.Context, event *Event) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	repository.nextID++
	event.ID = repository.nextID
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt

	copied := *event
	repository.events = append(repository.events, &copied)
	return nil
}

func (repository *MemoryRepository) ClaimDue(_ context.Context, now, leaseUntil time.Time, limit int) ([]*Event, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	var due []*Event
	for _, event := range repository.events {
		if event.Status == StatusPending && !event.NextAttemptAt.After(now) {
			due = append(due, event)
		}
	}
	slices.SortStableFunc(due, func(a, b *Event) int {
		return a.NextAttemptAt.Compare(b.NextAttemptAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]*Event, 0, len(due))
	for _, event := range due {
		event.Attempts++
		event.NextAttemptAt = leaseUntil
		copied := *event
		claimed = append(claimed, &copied)
	}
	return claimed, nil
}

func (repository *MemoryRepository) find(id int64) (*Event, error) {
	for _, event := range repository.events {
		if event.ID == id {
			return event, nil
		}
	}
	return nil, apperr.NotFound("Sync event")
}

func (repository *MemoryRepository) update(id int64, apply func(*Event)) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	event, err := repository.find(id)
	if err != nil {
		return err
	}
	apply(event)
	event.UpdatedAt = time.Now()
	return nil
}

func (repository *MemoryRepository) MarkDelivered(_ context.Context, id int64, result string) error {
	return repository.update(id, func(event *Event) {
		event.Status = StatusDelivered
		event.Result = result
		event.LastError = ""
	})
}

func (repository *MemoryRepository) MarkRetry(_ context.Context, id int64, next time.Time, lastError string) error {
	return repository.update(id, func(event *Event) {
		event.NextAttemptAt = next
		event.LastError = lastError
	})
}

func (repository *MemoryRepository) MarkDead(_ context.Context, id int64, lastError string) error {
	return repository.update(id, func(event *Event) {
		event.Status = StatusDead
		event.LastError = lastError
	})
}

func (repository *MemoryRepository) ListDead(_ context.Context, limit int) ([]*Event, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	var dead []*Event
	for i := len(repository.events) - 1; i >= 0 && len(dead) < limit; i-- {
		if event := repository.events[i]; event.Status == StatusDead {
			copied := *event
			dead = append(dead, &copied)
		}
	}
	return dead, nil
}

func (repository *MemoryRepository) Requeue(_ context.Context, id int64, now time.Time) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	event, err := repository.find(id)
	if err != nil || event.Status != StatusDead {
		return apperr.NotFound("Dead sync event")
	}
	event.Status = StatusPending
	event.Attempts = 0
	event.NextAttemptAt = now
	return nil
}

// Events returns a snapshot of every stored event in insertion order.
func (repository *MemoryRepository) Events() []Event {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	snapshot := make([]Event, 0, len(repository.events))
	for _, event := range repository.events {
		snapshot = append(snapshot, *event)
	}
	return snapshot
}

// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package circulation

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/taibuivan/librasync/internal/platform/apperr"
)

// MemoryRepository is an in-process [Repository] for tests and local tooling.
type MemoryRepository struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]*Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[int64]*Record)}
}

func (repository *MemoryRepository) Create(_ context.Context, record *Record) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if record.ID == 0 {
		repository.nextID++
		record.ID = repository.nextID
	}
	if _, ok := repository.records[record.ID]; ok {
		return apperr.Conflict(resourceRecord + " already exists")
	}
	repository.nextID = max(repository.nextID, record.ID)

	record.CreatedAt = time.Now()
	copied := *record
	repository.records[record.ID] = &copied
	return nil
}

func (repository *MemoryRepository) Get(_ context.Context, id int64) (*Record, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	record, ok := repository.records[id]
	if !ok {
		return nil, apperr.NotFound(resourceRecord)
	}
	copied := *record
	return &copied, nil
}

func (repository *MemoryRepository) Delete(_ context.Context, id int64) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, ok := repository.records[id]; !ok {
		return apperr.NotFound(resourceRecord)
	}
	delete(repository.records, id)
	return nil
}

func (repository *MemoryRepository) List(_ context.Context) ([]*Record, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	records := make([]*Record, 0, len(repository.records))
	for _, record := range repository.records {
		copied := *record
		records = append(records, &copied)
	}
	slices.SortFunc(records, func(a, b *Record) int { return cmp.Compare(a.ID, b.ID) })
	return records, nil
}

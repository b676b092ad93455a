// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/taibuivan/librasync/internal/platform/apperr"
	"github.com/taibuivan/librasync/pkg/slice"
)

// MemoryRepository is an in-process [Repository] for tests and local tooling.
// It does not track borrow records, so unavailable books carry no due date.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	books  map[int64]*Book
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{books: make(map[int64]*Book)}
}

func (repository *MemoryRepository) filter(keep func(*Book) bool) []*Book {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	books := []*Book{}
	for _, book := range repository.books {
		if keep(book) {
			copied := *book
			books = append(books, &copied)
		}
	}
	slices.SortFunc(books, func(a, b *Book) int { return cmp.Compare(a.ID, b.ID) })
	return books
}

func (repository *MemoryRepository) ListAvailable(_ context.Context) ([]*Book, error) {
	return repository.filter(func(book *Book) bool { return book.IsAvailable }), nil
}

func (repository *MemoryRepository) ListByCategory(_ context.Context, category Category) ([]*Book, error) {
	return repository.filter(func(book *Book) bool { return book.IsAvailable && book.Category == category }), nil
}

func (repository *MemoryRepository) ListByPublisher(_ context.Context, publisher Publisher) ([]*Book, error) {
	return repository.filter(func(book *Book) bool { return book.IsAvailable && book.Publisher == publisher }), nil
}

func (repository *MemoryRepository) ListUnavailable(_ context.Context) ([]*UnavailableBook, error) {
	books := repository.filter(func(book *Book) bool { return !book.IsAvailable })
	return slice.Map(books, func(book *Book) *UnavailableBook {
		return &UnavailableBook{Book: *book}
	}), nil
}

func (repository *MemoryRepository) Get(_ context.Context, id int64) (*Book, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	book, ok := repository.books[id]
	if !ok {
		return nil, apperr.NotFound(resourceBook)
	}
	copied := *book
	return &copied, nil
}

func (repository *MemoryRepository) Create(_ context.Context, book *Book) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if book.ID == 0 {
		book.ID = repository.nextID + 1
	}
	if _, exists := repository.books[book.ID]; exists {
		return apperr.Conflict(resourceBook + " already exists")
	}

	repository.nextID = max(repository.nextID, book.ID)
	book.CreatedAt = time.Now()
	book.UpdatedAt = book.CreatedAt

	copied := *book
	repository.books[book.ID] = &copied
	return nil
}

func (repository *MemoryRepository) Upsert(_ context.Context, book *Book) (bool, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	now := time.Now()
	existing, exists := repository.books[book.ID]
	book.CreatedAt = now
	if exists {
		book.CreatedAt = existing.CreatedAt
	}
	book.UpdatedAt = now
	repository.nextID = max(repository.nextID, book.ID)

	copied := *book
	repository.books[book.ID] = &copied
	return !exists, nil
}

func (repository *MemoryRepository) Update(_ context.Context, book *Book) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	existing, ok := repository.books[book.ID]
	if !ok {
		return apperr.NotFound(resourceBook)
	}
	book.CreatedAt = existing.CreatedAt
	book.UpdatedAt = time.Now()

	copied := *book
	repository.books[book.ID] = &copied
	return nil
}

func (repository *MemoryRepository) Delete(_ context.Context, id int64) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, ok := repository.books[id]; !ok {
		return apperr.NotFound(resourceBook)
	}
	delete(repository.books, id)
	return nil
}

func (repository *MemoryRepository) Adjust(_ context.Context, id int64, fn func(Book) (Book, error)) (*Book, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	current, ok := repository.books[id]
	if !ok {
		return nil, apperr.NotFound(resourceBook)
	}

	next, err := fn(*current)
	if err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now()

	*current = next
	return &next, nil
}

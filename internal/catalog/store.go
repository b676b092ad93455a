// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import "context"

/*
Repository defines the persistence contract for books.

Get, Update, Delete and Adjust return apperr NOT_FOUND for an unknown id.
Create returns apperr CONFLICT when the id is already taken.
*/
type Repository interface {
	ListAvailable(context context.Context) ([]*Book, error)
	ListByCategory(context context.Context, category Category) ([]*Book, error)
	ListByPublisher(context context.Context, publisher Publisher) ([]*Book, error)
	ListUnavailable(context context.Context) ([]*UnavailableBook, error)
	Get(context context.Context, id int64) (*Book, error)

	// Create inserts the book. A zero ID is assigned by the store.
	Create(context context.Context, book *Book) error

	// Upsert creates or replaces the book with this ID and reports whether it was created.
	Upsert(context context.Context, book *Book) (bool, error)

	Update(context context.Context, book *Book) error
	Delete(context context.Context, id int64) error

	// Adjust locks the book, applies fn and stores the result. Callers run it
	// inside a transaction so the lock lasts until commit.
	Adjust(context context.Context, id int64, fn func(Book) (Book, error)) (*Book, error)
}

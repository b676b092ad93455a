// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package catalog owns the book catalog of one service and its availability ledger.

The backend holds the authoritative catalog; the frontend holds a mirror kept
in step by sync jobs. Book ids are shared between the two copies, so writes
accept a caller-assigned id.
*/
package catalog

import (
	"encoding/json"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/taibuivan/librasync/internal/outbox"
	"github.com/taibuivan/librasync/pkg/pointer"
)

// Category classifies a book by subject.
type Category string

const (
	CategoryFiction    Category = "fiction"
	CategoryTechnology Category = "technology"
	CategoryScience    Category = "science"
)

// Publisher is one of the publishers the library stocks.
type Publisher string

const (
	PublisherWiley   Publisher = "wiley"
	PublisherApress  Publisher = "apress"
	PublisherManning Publisher = "manning"
)

var (
	Categories = []string{string(CategoryFiction), string(CategoryTechnology), string(CategoryScience)}
	Publishers = []string{string(PublisherWiley), string(PublisherApress), string(PublisherManning)}
)

var titleCase = cases.Title(language.English)

// Label is the display form, e.g. "Technology".
func (category Category) Label() string { return titleCase.String(string(category)) }

// Label is the display form, e.g. "Manning".
func (publisher Publisher) Label() string { return titleCase.String(string(publisher)) }

// Book is one catalog entry. IsAvailable is always derived from AvailableCopies.
type Book struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Category        Category  `json:"category"`
	Publisher       Publisher `json:"publisher"`
	AvailableCopies int       `json:"available_copies"`
	IsAvailable     bool      `json:"is_available"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// MarshalJSON adds the display labels of the category and publisher.
func (book Book) MarshalJSON() ([]byte, error) {
	type plain Book
	return json.Marshal(struct {
		plain
		CategoryLabel  string `json:"category_label"`
		PublisherLabel string `json:"publisher_label"`
	}{
		plain:          plain(book),
		CategoryLabel:  book.Category.Label(),
		PublisherLabel: book.Publisher.Label(),
	})
}

// Normalize re-derives IsAvailable. Every write path calls it.
func (book *Book) Normalize() {
	book.IsAvailable = book.AvailableCopies >= 1
}

// Snapshot is the sync payload for this book.
func (book *Book) Snapshot() outbox.BookPayload {
	return outbox.BookPayload{
		ID:              book.ID,
		Title:           book.Title,
		Author:          book.Author,
		Category:        string(book.Category),
		Publisher:       string(book.Publisher),
		AvailableCopies: book.AvailableCopies,
		IsAvailable:     book.IsAvailable,
	}
}

// UnavailableBook is a book with no copies left and the date one is due back.
type UnavailableBook struct {
	Book
	AvailableOn string `json:"available_on,omitempty"`
}

// Input is the request body of book writes.
//
// is_available is accepted for compatibility but ignored; it is recomputed.
type Input struct {
	ID              int64     `json:"id"`
	SessionID       string    `json:"session_id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Category        Category  `json:"category"`
	Publisher       Publisher `json:"publisher"`
	AvailableCopies *int      `json:"available_copies"`
	IsAvailable     *bool     `json:"is_available"`
}

// Book builds the entity the input describes. Copies default to 1.
func (input *Input) Book() *Book {
	book := &Book{
		ID:              input.ID,
		Title:           input.Title,
		Author:          input.Author,
		Category:        input.Category,
		Publisher:       input.Publisher,
		AvailableCopies: pointer.Fallback(input.AvailableCopies, 1),
	}
	book.Normalize()
	return book
}

// Field names for validation
const (
	FieldID              = "id"
	FieldTitle           = "title"
	FieldAuthor          = "author"
	FieldCategory        = "category"
	FieldPublisher       = "publisher"
	FieldAvailableCopies = "available_copies"
)

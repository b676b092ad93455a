// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package circulation records who borrowed which book and until when.

On the frontend a patron borrows a book: the catalog ledger takes one copy,
a record is stored and both are queued for the backend. The backend keeps
mirrored records keyed by email, serves the borrowers report and is where
returns happen; a return gives the copy back and is queued for the frontend.
*/
package circulation

import (
	"time"

	"github.com/taibuivan/librasync/internal/catalog"
	"github.com/taibuivan/librasync/internal/platform/constants"
)

// Record is one borrow. Dates use [constants.DateLayout].
type Record struct {
	ID           int64     `json:"id"`
	AccountID    string    `json:"account_id,omitempty"`
	UserEmail    string    `json:"user_email"`
	BookID       int64     `json:"book"`
	BorrowDate   string    `json:"borrow_date"`
	ReturnDate   string    `json:"return_date"`
	DurationDays int       `json:"duration_days"`
	CreatedAt    time.Time `json:"created_at"`
}

// DueDays is the number of days from today until the return date.
// It is negative for overdue records.
func (record *Record) DueDays(today time.Time) int {
	returnDate, err := time.Parse(constants.DateLayout, record.ReturnDate)
	if err != nil {
		return 0
	}
	return int(returnDate.Sub(dateOf(today)).Hours() / 24)
}

// dateOf truncates t to its UTC calendar day.
func dateOf(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// BorrowInput is the body of a patron borrow.
type BorrowInput struct {
	SessionID    string `json:"session_id"`
	DurationDays int    `json:"duration_days"`
}

// MirrorInput is a borrow record sent by the frontend.
type MirrorInput struct {
	ID           int64  `json:"id"`
	UserEmail    string `json:"user_email"`
	BookID       int64  `json:"book"`
	ReturnDate   string `json:"return_date"`
	DurationDays int    `json:"duration_days"`
}

// # Borrowers Report

// BookSummary is the part of a book shown in the borrowers report.
type BookSummary struct {
	ID             int64             `json:"id"`
	Title          string            `json:"title"`
	Author         string            `json:"author"`
	Category       catalog.Category  `json:"category"`
	CategoryLabel  string            `json:"category_label"`
	Publisher      catalog.Publisher `json:"publisher"`
	PublisherLabel string            `json:"publisher_label"`
}

func summarize(book *catalog.Book) BookSummary {
	return BookSummary{
		ID:             book.ID,
		Title:          book.Title,
		Author:         book.Author,
		Category:       book.Category,
		CategoryLabel:  book.Category.Label(),
		Publisher:      book.Publisher,
		PublisherLabel: book.Publisher.Label(),
	}
}

type BorrowedBook struct {
	Book         BookSummary `json:"book"`
	BorrowDate   string      `json:"borrow_date"`
	ReturnDate   string      `json:"return_date"`
	DurationDays int         `json:"duration_days"`
	DueDays      int         `json:"due_days"`
}

// Borrower is a frontend user with the books they hold.
type Borrower struct {
	ID            int64          `json:"id"`
	Email         string         `json:"email"`
	FirstName     string         `json:"first_name"`
	LastName      string         `json:"last_name"`
	BorrowedBooks []BorrowedBook `json:"borrowed_books"`
}

// Field names for validation
const (
	FieldID           = "id"
	FieldUserEmail    = "user_email"
	FieldBook         = "book"
	FieldReturnDate   = "return_date"
	FieldDurationDays = "duration_days"
)

// MaxDurationDays bounds a single borrow.
const MaxDurationDays = 365

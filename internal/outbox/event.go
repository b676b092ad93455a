// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package outbox is the durable mutation log for cross-service sync.

Services append an [Event] in the same transaction as the local mutation, and
a [Dispatcher] delivers due events to the peer through kind-specific handlers
with bounded retry. Events that cannot be delivered end up in the dead status
for inspection and manual requeue.

Writes that arrived from the peer are never appended, so mirrored changes do
not bounce back.
*/
package outbox

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind names the mutation an event propagates.
type Kind string

const (
	KindBookUpsert   Kind = "book.upsert"
	KindBookDelete   Kind = "book.delete"
	KindBorrowCreate Kind = "borrow.create"
	KindBorrowDelete Kind = "borrow.delete"
	KindUserSync     Kind = "user.sync"
)

// Status is the delivery state of an event.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusDead      Status = "dead"
)

// Event is one pending or settled cross-service effect.
type Event struct {
	ID            int64           `json:"id"`
	Kind          Kind            `json:"kind"`
	AggregateID   int64           `json:"aggregate_id"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	NextAttemptAt time.Time       `json:"next_attempt_at"`
	LastError     string          `json:"last_error,omitempty"`
	Result        string          `json:"result,omitempty"`
	RequestID     string          `json:"request_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Decode unmarshals the payload into target.
func (event *Event) Decode(target any) error {
	if err := json.Unmarshal(event.Payload, target); err != nil {
		return Permanent(fmt.Errorf("malformed %s payload for event %d: %w", event.Kind, event.ID, err))
	}
	return nil
}

// # Payloads

// BookPayload snapshots a book at the time of the mutation.
type BookPayload struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Category        string `json:"category"`
	Publisher       string `json:"publisher"`
	AvailableCopies int    `json:"available_copies"`
	IsAvailable     bool   `json:"is_available"`
}

// BookRef identifies a deleted book.
type BookRef struct {
	ID int64 `json:"id"`
}

// BorrowPayload describes a borrow record as created on the frontend.
// ReturnDate is the local date; the handler applies the peer-side offset.
type BorrowPayload struct {
	ID           int64  `json:"id"`
	UserEmail    string `json:"user_email"`
	BookID       int64  `json:"book"`
	ReturnDate   string `json:"return_date"`
	DurationDays int    `json:"duration_days"`
}

// BorrowRef identifies a deleted borrow record.
type BorrowRef struct {
	ID int64 `json:"id"`
}

// UserPayload carries a patron registration to the backend directory.
type UserPayload struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

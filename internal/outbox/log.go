// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/librasync/internal/platform/ctxutil"
)

// Appender records a mutation for later delivery to the peer.
type Appender interface {
	Append(ctx context.Context, kind Kind, aggregateID int64, payload any) error
}

// Log is the [Appender] backed by the outbox table.
type Log struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
	notify func()
}

// LogOption customises a [Log].
type LogOption func(*Log)

// WithLogClock replaces the wall clock used to stamp the first due time.
func WithLogClock(now func() time.Time) LogOption {
	return func(log *Log) {
		log.now = now
	}
}

func NewLog(repo Repository, logger *slog.Logger, opts ...LogOption) *Log {
	log := &Log{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		notify: func() {},
	}
	for _, opt := range opts {
		opt(log)
	}
	return log
}

// OnAppend registers a wake-up hook, typically [Dispatcher.Wake].
func (log *Log) OnAppend(notify func()) {
	log.notify = notify
}

/*
Append stores an event for the mutation described by payload.

Mutations applied on behalf of the peer are not recorded.

Parameters:
  - ctx: context.Context (joins the caller's transaction when present)
  - kind: Kind
  - aggregateID: int64 (book or borrow record id)
  - payload: any (JSON-encodable)

Returns:
  - error: Encoding or storage failures
*/
func (log *Log) Append(ctx context.Context, kind Kind, aggregateID int64, payload any) error {
	if ctxutil.IsPeerWrite(ctx) {
		log.logger.DebugContext(ctx, "sync_event_suppressed",
			slog.String("kind", string(kind)),
			slog.Int64("aggregate_id", aggregateID),
			slog.String("origin", ctxutil.GetSyncOrigin(ctx)),
		)
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("outbox_encode_failed: %w", err)
	}

	event := &Event{
		Kind:          kind,
		AggregateID:   aggregateID,
		Payload:       body,
		Status:        StatusPending,
		NextAttemptAt: log.now(),
		RequestID:     ctxutil.GetRequestID(ctx),
	}

	if err := log.repo.Insert(ctx, event); err != nil {
		return fmt.Errorf("outbox_append_failed: %w", err)
	}

	log.notify()
	return nil
}

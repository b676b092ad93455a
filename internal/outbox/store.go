// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package outbox

import (
	"context"
	"time"
)

/*
Repository persists outbox events.

Insert joins the caller's transaction when the context carries one.

ClaimDue selects up to limit pending events due at now, skipping rows locked
by other dispatchers, counts the attempt and pushes next_attempt_at to
leaseUntil so a crashed worker's event is picked up again later.
*/
type Repository interface {
	Insert(context context.Context, event *Event) error
	ClaimDue(context context.Context, now, leaseUntil time.Time, limit int) ([]*Event, error)

	MarkDelivered(context context.Context, id int64, result string) error
	MarkRetry(context context.Context, id int64, next time.Time, lastError string) error
	MarkDead(context context.Context, id int64, lastError string) error

	ListDead(context context.Context, limit int) ([]*Event, error)
	Requeue(context context.Context, id int64, now time.Time) error
}

// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/librasync/internal/platform/apperr"
	"github.com/taibuivan/librasync/internal/platform/database/schema"
	"github.com/taibuivan/librasync/internal/platform/dberr"
	"github.com/taibuivan/librasync/internal/platform/postgres"
)

const resourceEvent = "Sync event"

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var eventColumns = schema.List(schema.SyncOutbox.Columns()...)

func scanEvents(rows pgx.Rows) ([]*Event, error) {
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event := &Event{}
		if err := rows.Scan(
			&event.ID, &event.Kind, &event.AggregateID, &event.Payload, &event.Status, &event.Attempts,
			&event.NextAttemptAt, &event.LastError, &event.Result, &event.RequestID, &event.CreatedAt, &event.UpdatedAt,
		); err != nil {
			return nil, dberr.Wrap(err, resourceEvent, "scan_sync_event")
		}
		events = append(events, event)
	}

	return events, dberr.Wrap(rows.Err(), resourceEvent, "iterate_sync_events")
}

func (repository *PostgresRepository) Insert(context context.Context, event *Event) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s, %s, %s
	`,
		schema.SyncOutbox.Table, schema.SyncOutbox.Kind, schema.SyncOutbox.AggregateID, schema.SyncOutbox.Payload,
		schema.SyncOutbox.Status, schema.SyncOutbox.NextAttemptAt, schema.SyncOutbox.RequestID,
		schema.SyncOutbox.ID, schema.SyncOutbox.CreatedAt, schema.SyncOutbox.UpdatedAt,
	)

	err := postgres.Conn(context, repository.db).QueryRow(context, query,
		event.Kind, event.AggregateID, event.Payload, event.Status, event.NextAttemptAt, event.RequestID,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)

	return dberr.Wrap(err, resourceEvent, "insert_sync_event")
}

func (repository *PostgresRepository) ClaimDue(context context.Context, now, leaseUntil time.Time, limit int) ([]*Event, error) {
	query := fmt.Sprintf(`
		UPDATE %[1]s SET %[2]s = %[2]s + 1, %[3]s = $2, %[4]s = NOW()
		WHERE %[5]s IN (
			SELECT %[5]s FROM %[1]s
			WHERE %[6]s = '%[7]s' AND %[3]s <= $1
			ORDER BY %[3]s, %[5]s
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING %[8]s
	`,
		schema.SyncOutbox.Table, schema.SyncOutbox.Attempts, schema.SyncOutbox.NextAttemptAt, schema.SyncOutbox.UpdatedAt,
		schema.SyncOutbox.ID, schema.SyncOutbox.Status, StatusPending, eventColumns,
	)

	rows, err := postgres.Conn(context, repository.db).Query(context, query, now, leaseUntil, limit)
	if err != nil {
		return nil, dberr.Wrap(err, resourceEvent, "claim_sync_events")
	}

	return scanEvents(rows)
}

func (repository *PostgresRepository) settle(context context.Context, action string, id int64, set string, args ...any) error {
	query := fmt.Sprintf(`UPDATE %s SET %s, %s = NOW() WHERE %s = $1`,
		schema.SyncOutbox.Table, set, schema.SyncOutbox.UpdatedAt, schema.SyncOutbox.ID,
	)

	cmd, err := postgres.Conn(context, repository.db).Exec(context, query, append([]any{id}, args...)...)
	if err != nil {
		return dberr.Wrap(err, resourceEvent, action)
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound(resourceEvent)
	}
	return nil
}

func (repository *PostgresRepository) MarkDelivered(context context.Context, id int64, result string) error {
	set := fmt.Sprintf(`%s = '%s', %s = $2, %s = ''`,
		schema.SyncOutbox.Status, StatusDelivered, schema.SyncOutbox.Result, schema.SyncOutbox.LastError,
	)
	return repository.settle(context, "mark_sync_event_delivered", id, set, result)
}

func (repository *PostgresRepository) MarkRetry(context context.Context, id int64, next time.Time, lastError string) error {
	set := fmt.Sprintf(`%s = $2, %s = $3`, schema.SyncOutbox.NextAttemptAt, schema.SyncOutbox.LastError)
	return repository.settle(context, "mark_sync_event_retry", id, set, next, lastError)
}

func (repository *PostgresRepository) MarkDead(context context.Context, id int64, lastError string) error {
	set := fmt.Sprintf(`%s = '%s', %s = $2`, schema.SyncOutbox.Status, StatusDead, schema.SyncOutbox.LastError)
	return repository.settle(context, "mark_sync_event_dead", id, set, lastError)
}

func (repository *PostgresRepository) ListDead(context context.Context, limit int) ([]*Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = '%s' ORDER BY %s DESC LIMIT $1`,
		eventColumns, schema.SyncOutbox.Table, schema.SyncOutbox.Status, StatusDead, schema.SyncOutbox.UpdatedAt,
	)

	rows, err := postgres.Conn(context, repository.db).Query(context, query, limit)
	if err != nil {
		return nil, dberr.Wrap(err, resourceEvent, "list_dead_sync_events")
	}

	return scanEvents(rows)
}

func (repository *PostgresRepository) Requeue(context context.Context, id int64, now time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = '%s', %s = 0, %s = $2, %s = NOW()
		WHERE %s = $1 AND %s = '%s'
	`,
		schema.SyncOutbox.Table, schema.SyncOutbox.Status, StatusPending, schema.SyncOutbox.Attempts,
		schema.SyncOutbox.NextAttemptAt, schema.SyncOutbox.UpdatedAt,
		schema.SyncOutbox.ID, schema.SyncOutbox.Status, StatusDead,
	)

	cmd, err := postgres.Conn(context, repository.db).Exec(context, query, id, now)
	if err != nil {
		return dberr.Wrap(err, resourceEvent, "requeue_sync_event")
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound("Dead sync event")
	}
	return nil
}

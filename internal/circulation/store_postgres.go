// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package circulation

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/librasync/internal/platform/apperr"
	"github.com/taibuivan/librasync/internal/platform/constants"
	"github.com/taibuivan/librasync/internal/platform/database/schema"
	"github.com/taibuivan/librasync/internal/platform/dberr"
	"github.com/taibuivan/librasync/internal/platform/postgres"
)

const resourceRecord = "Borrow record"

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var (
	selectRecord = fmt.Sprintf(`SELECT %s FROM %s`,
		schema.List(schema.BorrowRecord.Columns()...), schema.BorrowRecord.Table,
	)

	syncRecordSequence = fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%s', '%s'), GREATEST((SELECT MAX(%s) FROM %s), 1))`,
		schema.BorrowRecord.Table, schema.BorrowRecord.ID, schema.BorrowRecord.ID, schema.BorrowRecord.Table,
	)
)

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		record     Record
		accountID  *string
		borrowDate time.Time
		returnDate time.Time
	)
	err := row.Scan(
		&record.ID, &accountID, &record.UserEmail, &record.BookID,
		&borrowDate, &returnDate, &record.DurationDays, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if accountID != nil {
		record.AccountID = *accountID
	}
	record.BorrowDate = borrowDate.Format(constants.DateLayout)
	record.ReturnDate = returnDate.Format(constants.DateLayout)
	return &record, nil
}

func parseDates(record *Record) (time.Time, time.Time, error) {
	borrowDate, err := time.Parse(constants.DateLayout, record.BorrowDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("borrow_date_invalid: %w", err)
	}
	returnDate, err := time.Parse(constants.DateLayout, record.ReturnDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("return_date_invalid: %w", err)
	}
	return borrowDate, returnDate, nil
}

func (repository *PostgresRepository) Create(context context.Context, record *Record) error {
	borrowDate, returnDate, err := parseDates(record)
	if err != nil {
		return apperr.Internal(err)
	}

	var accountID *string
	if record.AccountID != "" {
		accountID = &record.AccountID
	}

	conn := postgres.Conn(context, repository.db)

	if record.ID == 0 {
		query := fmt.Sprintf(`
			INSERT INTO %s (%s, %s, %s, %s, %s, %s)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING %s
		`,
			schema.BorrowRecord.Table, schema.BorrowRecord.AccountID, schema.BorrowRecord.UserEmail, schema.BorrowRecord.BookID,
			schema.BorrowRecord.BorrowDate, schema.BorrowRecord.ReturnDate, schema.BorrowRecord.DurationDays,
			schema.List(schema.BorrowRecord.ID, schema.BorrowRecord.CreatedAt),
		)

		err := conn.QueryRow(context, query,
			accountID, record.UserEmail, record.BookID, borrowDate, returnDate, record.DurationDays,
		).Scan(&record.ID, &record.CreatedAt)
		return dberr.Wrap(err, resourceRecord, "create_borrow_record")
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING %s
	`,
		schema.BorrowRecord.Table, schema.List(schema.BorrowRecord.Columns()...),
		schema.BorrowRecord.CreatedAt,
	)

	err = conn.QueryRow(context, query,
		record.ID, accountID, record.UserEmail, record.BookID, borrowDate, returnDate, record.DurationDays,
	).Scan(&record.CreatedAt)
	if err != nil {
		return dberr.Wrap(err, resourceRecord, "create_borrow_record")
	}

	_, err = conn.Exec(context, syncRecordSequence)
	return dberr.Wrap(err, resourceRecord, "sync_borrow_record_sequence")
}

func (repository *PostgresRepository) Get(context context.Context, id int64) (*Record, error) {
	query := selectRecord + fmt.Sprintf(` WHERE %s = $1`, schema.BorrowRecord.ID)

	record, err := scanRecord(postgres.Conn(context, repository.db).QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, resourceRecord, "get_borrow_record")
	}
	return record, nil
}

func (repository *PostgresRepository) Delete(context context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.BorrowRecord.Table, schema.BorrowRecord.ID)

	cmd, err := postgres.Conn(context, repository.db).Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, resourceRecord, "delete_borrow_record")
	}

	if cmd.RowsAffected() == 0 {
		return apperr.NotFound(resourceRecord)
	}
	return nil
}

func (repository *PostgresRepository) List(context context.Context) ([]*Record, error) {
	query := selectRecord + fmt.Sprintf(` ORDER BY %s ASC`, schema.BorrowRecord.ID)

	rows, err := postgres.Conn(context, repository.db).Query(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, resourceRecord, "list_borrow_records")
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, dberr.Wrap(err, resourceRecord, "scan_borrow_record")
		}
		records = append(records, record)
	}

	return records, dberr.Wrap(rows.Err(), resourceRecord, "list_borrow_records")
}

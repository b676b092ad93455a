// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

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

const resourceBook = "Book"

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var (
	bookColumns = schema.List(
		schema.Book.ID, schema.Book.Title, schema.Book.Author, schema.Book.Category, schema.Book.Publisher,
		schema.Book.AvailableCopies, schema.Book.IsAvailable, schema.Book.CreatedAt, schema.Book.UpdatedAt,
	)

	selectBook = fmt.Sprintf(`SELECT %s FROM %s`, bookColumns, schema.Book.Table)

	// syncBookSequence keeps generated ids above ids inserted explicitly by mirrors.
	syncBookSequence = fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%s', '%s'), GREATEST((SELECT MAX(%s) FROM %s), 1))`,
		schema.Book.Table, schema.Book.ID, schema.Book.ID, schema.Book.Table,
	)
)

func scanBook(row pgx.Row, book *Book) error {
	return row.Scan(
		&book.ID, &book.Title, &book.Author, &book.Category, &book.Publisher,
		&book.AvailableCopies, &book.IsAvailable, &book.CreatedAt, &book.UpdatedAt,
	)
}

func (repository *PostgresRepository) list(context context.Context, action, where string, args ...any) ([]*Book, error) {
	query := selectBook + where + fmt.Sprintf(` ORDER BY %s ASC`, schema.Book.ID)

	rows, err := postgres.Conn(context, repository.db).Query(context, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, resourceBook, action)
	}
	defer rows.Close()

	books := []*Book{}
	for rows.Next() {
		book := &Book{}
		if err := scanBook(rows, book); err != nil {
			return nil, dberr.Wrap(err, resourceBook, "scan_book")
		}
		books = append(books, book)
	}

	return books, dberr.Wrap(rows.Err(), resourceBook, action)
}

func (repository *PostgresRepository) ListAvailable(context context.Context) ([]*Book, error) {
	return repository.list(context, "list_available_books",
		fmt.Sprintf(` WHERE %s`, schema.Book.IsAvailable),
	)
}

func (repository *PostgresRepository) ListByCategory(context context.Context, category Category) ([]*Book, error) {
	return repository.list(context, "list_books_by_category",
		fmt.Sprintf(` WHERE %s AND %s = $1`, schema.Book.IsAvailable, schema.Book.Category), category,
	)
}

func (repository *PostgresRepository) ListByPublisher(context context.Context, publisher Publisher) ([]*Book, error) {
	return repository.list(context, "list_books_by_publisher",
		fmt.Sprintf(` WHERE %s AND %s = $1`, schema.Book.IsAvailable, schema.Book.Publisher), publisher,
	)
}

func (repository *PostgresRepository) ListUnavailable(context context.Context) ([]*UnavailableBook, error) {
	query := fmt.Sprintf(`
		SELECT %s, (SELECT MAX(r.%s) FROM %s r WHERE r.%s = %s.%s)
		FROM %s
		WHERE NOT %s
		ORDER BY %s ASC
	`,
		bookColumns, schema.BorrowRecord.ReturnDate, schema.BorrowRecord.Table, schema.BorrowRecord.BookID,
		schema.Book.Table, schema.Book.ID,
		schema.Book.Table, schema.Book.IsAvailable, schema.Book.ID,
	)

	rows, err := postgres.Conn(context, repository.db).Query(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, resourceBook, "list_unavailable_books")
	}
	defer rows.Close()

	books := []*UnavailableBook{}
	for rows.Next() {
		var (
			book        UnavailableBook
			availableOn *time.Time
		)
		err := rows.Scan(
			&book.ID, &book.Title, &book.Author, &book.Category, &book.Publisher,
			&book.AvailableCopies, &book.IsAvailable, &book.CreatedAt, &book.UpdatedAt, &availableOn,
		)
		if err != nil {
			return nil, dberr.Wrap(err, resourceBook, "scan_unavailable_book")
		}
		if availableOn != nil {
			book.AvailableOn = availableOn.Format(constants.DateLayout)
		}
		books = append(books, &book)
	}

	return books, dberr.Wrap(rows.Err(), resourceBook, "list_unavailable_books")
}

func (repository *PostgresRepository) Get(context context.Context, id int64) (*Book, error) {
	book := &Book{}
	query := selectBook + fmt.Sprintf(` WHERE %s = $1`, schema.Book.ID)

	if err := scanBook(postgres.Conn(context, repository.db).QueryRow(context, query, id), book); err != nil {
		return nil, dberr.Wrap(err, resourceBook, "get_book")
	}
	return book, nil
}

func (repository *PostgresRepository) Create(context context.Context, book *Book) error {
	conn := postgres.Conn(context, repository.db)

	if book.ID == 0 {
		query := fmt.Sprintf(`
			INSERT INTO %s (%s, %s, %s, %s, %s, %s)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING %s
		`,
			schema.Book.Table, schema.Book.Title, schema.Book.Author, schema.Book.Category, schema.Book.Publisher,
			schema.Book.AvailableCopies, schema.Book.IsAvailable,
			schema.List(schema.Book.ID, schema.Book.CreatedAt, schema.Book.UpdatedAt),
		)

		err := conn.QueryRow(context, query,
			book.Title, book.Author, book.Category, book.Publisher, book.AvailableCopies, book.IsAvailable,
		).Scan(&book.ID, &book.CreatedAt, &book.UpdatedAt)
		return dberr.Wrap(err, resourceBook, "create_book")
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING %s
	`,
		schema.Book.Table, bookColumns,
		schema.List(schema.Book.CreatedAt, schema.Book.UpdatedAt),
	)

	err := conn.QueryRow(context, query,
		book.ID, book.Title, book.Author, book.Category, book.Publisher, book.AvailableCopies, book.IsAvailable,
	).Scan(&book.CreatedAt, &book.UpdatedAt)
	if err != nil {
		return dberr.Wrap(err, resourceBook, "create_book")
	}

	_, err = conn.Exec(context, syncBookSequence)
	return dberr.Wrap(err, resourceBook, "sync_book_sequence")
}

func (repository *PostgresRepository) Upsert(context context.Context, book *Book) (bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (%s) DO UPDATE SET
			%s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s,
			%s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = NOW()
		RETURNING (xmax = 0), %s
	`,
		schema.Book.Table, bookColumns,
		schema.Book.ID,
		schema.Book.Title, schema.Book.Title, schema.Book.Author, schema.Book.Author,
		schema.Book.Category, schema.Book.Category, schema.Book.Publisher, schema.Book.Publisher,
		schema.Book.AvailableCopies, schema.Book.AvailableCopies, schema.Book.IsAvailable, schema.Book.IsAvailable,
		schema.Book.UpdatedAt,
		schema.List(schema.Book.CreatedAt, schema.Book.UpdatedAt),
	)

	conn := postgres.Conn(context, repository.db)

	var created bool
	err := conn.QueryRow(context, query,
		book.ID, book.Title, book.Author, book.Category, book.Publisher, book.AvailableCopies, book.IsAvailable,
	).Scan(&created, &book.CreatedAt, &book.UpdatedAt)
	if err != nil {
		return false, dberr.Wrap(err, resourceBook, "upsert_book")
	}

	if created {
		if _, err := conn.Exec(context, syncBookSequence); err != nil {
			return false, dberr.Wrap(err, resourceBook, "sync_book_sequence")
		}
	}
	return created, nil
}

func (repository *PostgresRepository) Update(context context.Context, book *Book) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5, %s = $6, %s = $7, %s = NOW()
		WHERE %s = $1
		RETURNING %s
	`,
		schema.Book.Table,
		schema.Book.Title, schema.Book.Author, schema.Book.Category, schema.Book.Publisher,
		schema.Book.AvailableCopies, schema.Book.IsAvailable, schema.Book.UpdatedAt,
		schema.Book.ID,
		schema.List(schema.Book.CreatedAt, schema.Book.UpdatedAt),
	)

	err := postgres.Conn(context, repository.db).QueryRow(context, query,
		book.ID, book.Title, book.Author, book.Category, book.Publisher, book.AvailableCopies, book.IsAvailable,
	).Scan(&book.CreatedAt, &book.UpdatedAt)
	return dberr.Wrap(err, resourceBook, "update_book")
}

func (repository *PostgresRepository) Delete(context context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.Book.Table, schema.Book.ID)

	cmd, err := postgres.Conn(context, repository.db).Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, resourceBook, "delete_book")
	}

	if cmd.RowsAffected() == 0 {
		return apperr.NotFound(resourceBook)
	}
	return nil
}

func (repository *PostgresRepository) Adjust(context context.Context, id int64, fn func(Book) (Book, error)) (*Book, error) {
	conn := postgres.Conn(context, repository.db)

	var current Book
	query := selectBook + fmt.Sprintf(` WHERE %s = $1 FOR UPDATE`, schema.Book.ID)
	if err := scanBook(conn.QueryRow(context, query, id), &current); err != nil {
		return nil, dberr.Wrap(err, resourceBook, "lock_book")
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}

	update := fmt.Sprintf(`
		UPDATE %s SET %s = $2, %s = $3, %s = NOW()
		WHERE %s = $1
		RETURNING %s
	`,
		schema.Book.Table, schema.Book.AvailableCopies, schema.Book.IsAvailable, schema.Book.UpdatedAt,
		schema.Book.ID,
		schema.Book.UpdatedAt,
	)

	if err := conn.QueryRow(context, update, id, next.AvailableCopies, next.IsAvailable).Scan(&next.UpdatedAt); err != nil {
		return nil, dberr.Wrap(err, resourceBook, "adjust_book")
	}
	return &next, nil
}

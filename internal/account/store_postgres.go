// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/librasync/internal/platform/database/schema"
	"github.com/taibuivan/librasync/internal/platform/dberr"
	"github.com/taibuivan/librasync/internal/platform/postgres"
)

const (
	resourceAccount      = "Account"
	resourceFrontendUser = "Frontend user"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (repository *PostgresRepository) Create(context context.Context, account *Account) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING %s
	`,
		schema.Account.Table, schema.Account.ID, schema.Account.Email, schema.Account.FirstName,
		schema.Account.LastName, schema.Account.PasswordHash, schema.Account.CreatedAt, schema.Account.UpdatedAt,
		schema.List(schema.Account.CreatedAt, schema.Account.UpdatedAt),
	)

	err := postgres.Conn(context, repository.db).QueryRow(context, query,
		account.ID, account.Email, account.FirstName, account.LastName, account.PasswordHash,
	).Scan(&account.CreatedAt, &account.UpdatedAt)

	return dberr.Wrap(err, resourceAccount, "create_account")
}

func (repository *PostgresRepository) get(context context.Context, action, where string, arg any) (*Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s`,
		schema.List(schema.Account.Columns()...), schema.Account.Table, where,
	)

	account := &Account{}
	err := postgres.Conn(context, repository.db).QueryRow(context, query, arg).Scan(
		&account.ID, &account.Email, &account.FirstName, &account.LastName,
		&account.PasswordHash, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, resourceAccount, action)
	}
	return account, nil
}

func (repository *PostgresRepository) Get(context context.Context, id string) (*Account, error) {
	return repository.get(context, "get_account", schema.Account.ID+" = $1", id)
}

func (repository *PostgresRepository) GetByEmail(context context.Context, email string) (*Account, error) {
	return repository.get(context, "get_account_by_email", fmt.Sprintf("LOWER(%s) = LOWER($1)", schema.Account.Email), email)
}

type PostgresDirectoryRepository struct {
	db *pgxpool.Pool
}

func NewPostgresDirectoryRepository(db *pgxpool.Pool) *PostgresDirectoryRepository {
	return &PostgresDirectoryRepository{db: db}
}

func (repository *PostgresDirectoryRepository) Upsert(context context.Context, user *FrontendUser) (bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s)
		VALUES ($1, $2, $3)
		ON CONFLICT ((LOWER(%s))) DO UPDATE SET
			%s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = NOW()
		RETURNING (xmax = 0), %s
	`,
		schema.FrontendUser.Table, schema.FrontendUser.Email, schema.FrontendUser.FirstName, schema.FrontendUser.LastName,
		schema.FrontendUser.Email,
		schema.FrontendUser.FirstName, schema.FrontendUser.FirstName,
		schema.FrontendUser.LastName, schema.FrontendUser.LastName,
		schema.FrontendUser.UpdatedAt,
		schema.List(schema.FrontendUser.ID, schema.FrontendUser.CreatedAt, schema.FrontendUser.UpdatedAt),
	)

	var created bool
	err := postgres.Conn(context, repository.db).QueryRow(context, query,
		user.Email, user.FirstName, user.LastName,
	).Scan(&created, &user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return false, dberr.Wrap(err, resourceFrontendUser, "upsert_frontend_user")
	}
	return created, nil
}

func (repository *PostgresDirectoryRepository) List(context context.Context) ([]*FrontendUser, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s ASC`,
		schema.List(schema.FrontendUser.Columns()...), schema.FrontendUser.Table, schema.FrontendUser.ID,
	)

	rows, err := postgres.Conn(context, repository.db).Query(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, resourceFrontendUser, "list_frontend_users")
	}
	defer rows.Close()

	users := []*FrontendUser{}
	for rows.Next() {
		user := &FrontendUser{}
		if err := rows.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, dberr.Wrap(err, resourceFrontendUser, "scan_frontend_user")
		}
		users = append(users, user)
	}

	return users, dberr.Wrap(rows.Err(), resourceFrontendUser, "list_frontend_users")
}

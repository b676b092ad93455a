// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/librasync/internal/platform/database/schema"
	"github.com/taibuivan/librasync/internal/platform/dberr"
	"github.com/taibuivan/librasync/internal/platform/postgres"
)

const resourceSession = "Session"

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var selectSession = fmt.Sprintf(`SELECT %s FROM %s`,
	schema.List(schema.Session.AccountID, schema.Session.Token, schema.Session.LastActivity, schema.Session.CreatedAt),
	schema.Session.Table,
)

func (repository *PostgresRepository) GetByAccount(context context.Context, accountID string) (*Session, error) {
	query := selectSession + fmt.Sprintf(` WHERE %s = $1`, schema.Session.AccountID)
	return repository.scanOne(context, query, accountID, "get_session_by_account")
}

func (repository *PostgresRepository) GetByToken(context context.Context, token string) (*Session, error) {
	query := selectSession + fmt.Sprintf(` WHERE %s = $1`, schema.Session.Token)
	return repository.scanOne(context, query, token, "get_session_by_token")
}

func (repository *PostgresRepository) scanOne(context context.Context, query, arg, action string) (*Session, error) {
	session := &Session{}
	err := postgres.Conn(context, repository.db).QueryRow(context, query, arg).Scan(
		&session.AccountID, &session.Token, &session.LastActivity, &session.CreatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, resourceSession, action)
	}
	return session, nil
}

func (repository *PostgresRepository) Create(context context.Context, session *Session) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES ($1, $2, $3, NOW())
		RETURNING %s
	`,
		schema.Session.Table, schema.Session.AccountID, schema.Session.Token, schema.Session.LastActivity, schema.Session.CreatedAt,
		schema.Session.CreatedAt,
	)

	err := postgres.Conn(context, repository.db).QueryRow(context, query,
		session.AccountID, session.Token, session.LastActivity,
	).Scan(&session.CreatedAt)

	return dberr.Wrap(err, resourceSession, "create_session")
}

func (repository *PostgresRepository) Rotate(context context.Context, session *Session, oldToken string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $2, %s = $3
		WHERE %s = $1 AND %s = $4
	`,
		schema.Session.Table, schema.Session.Token, schema.Session.LastActivity,
		schema.Session.AccountID, schema.Session.Token,
	)

	cmd, err := postgres.Conn(context, repository.db).Exec(context, query,
		session.AccountID, session.Token, session.LastActivity, oldToken,
	)
	if err != nil {
		return false, dberr.Wrap(err, resourceSession, "rotate_session")
	}

	return cmd.RowsAffected() == 1, nil
}

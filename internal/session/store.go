// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import "context"

/*
Repository defines the persistence contract for sessions.

Lookups return apperr NOT_FOUND when no row matches. Create returns apperr
CONFLICT when the account already has a row or the token is taken.
*/
type Repository interface {
	GetByAccount(context context.Context, accountID string) (*Session, error)
	GetByToken(context context.Context, token string) (*Session, error)
	Create(context context.Context, session *Session) error

	// Rotate swaps the token only if the row still holds oldToken.
	// It reports false when another caller rotated first.
	Rotate(context context.Context, session *Session, oldToken string) (bool, error)
}

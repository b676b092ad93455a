// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import "context"

/*
Repository defines the persistence contract for accounts.

Emails are matched case-insensitively. Create returns apperr CONFLICT for a
taken email; the getters return apperr NOT_FOUND for unknown accounts.
*/
type Repository interface {
	Create(context context.Context, account *Account) error
	Get(context context.Context, id string) (*Account, error)
	GetByEmail(context context.Context, email string) (*Account, error)
}

// DirectoryRepository stores the backend's copy of frontend users.
type DirectoryRepository interface {
	// Upsert inserts the user or updates the names of the user with the same
	// email. It reports whether a row was inserted.
	Upsert(context context.Context, user *FrontendUser) (bool, error)
	List(context context.Context) ([]*FrontendUser, error)
}

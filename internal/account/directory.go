// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"log/slog"
	"strings"

	"github.com/taibuivan/librasync/internal/platform/validate"
)

// Directory keeps the backend's list of frontend users.
type Directory struct {
	repo   DirectoryRepository
	logger *slog.Logger
}

func NewDirectory(repo DirectoryRepository, logger *slog.Logger) *Directory {
	return &Directory{repo: repo, logger: logger}
}

/*
Sync records a frontend user. Re-registering an email updates the names.

The stored row is written back into user.

Returns:
  - bool: true when the email was new
  - error: VALIDATION_ERROR or storage failures
*/
func (directory *Directory) Sync(ctx context.Context, user *FrontendUser) (bool, error) {
	user.Email = strings.TrimSpace(user.Email)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, user.Email).Email(FieldEmail, user.Email)
	validator.Required(FieldFirstName, user.FirstName).Required(FieldLastName, user.LastName)
	if err := validator.Err(); err != nil {
		return false, err
	}

	created, err := directory.repo.Upsert(ctx, user)
	if err != nil {
		return false, err
	}

	directory.logger.InfoContext(ctx, "frontend_user_synced",
		slog.Int64("user_id", user.ID),
		slog.Bool("created", created),
	)
	return created, nil
}

func (directory *Directory) List(ctx context.Context) ([]*FrontendUser, error) {
	return directory.repo.List(ctx)
}

// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package circulation

import "context"

/*
Repository defines the persistence contract for borrow records.

Create assigns an id when the record has none and keeps the given one
otherwise (mirrors). Get and Delete return apperr NOT_FOUND for unknown ids.
*/
type Repository interface {
	Create(context context.Context, record *Record) error
	Get(context context.Context, id int64) (*Record, error)
	Delete(context context.Context, id int64) error
	List(context context.Context) ([]*Record, error)
}

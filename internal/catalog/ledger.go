// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import "github.com/taibuivan/librasync/internal/platform/apperr"

/*
OnBorrow takes one copy out of circulation.

Returns:
  - Book: The book with one copy fewer
  - error: apperr.BookUnavailable when no copies are left; book is unchanged
*/
func OnBorrow(book Book) (Book, error) {
	if book.AvailableCopies <= 0 {
		return book, apperr.BookUnavailable()
	}
	book.AvailableCopies--
	book.Normalize()
	return book, nil
}

// OnReturn puts one copy back.
func OnReturn(book Book) Book {
	book.AvailableCopies++
	book.Normalize()
	return book
}

// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/librasync/internal/platform/apperr"
	"github.com/taibuivan/librasync/internal/platform/constants"
	"github.com/taibuivan/librasync/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

An empty body decodes to the zero value, since several endpoints (DELETE with
an optional session_id) accept one.

Parameters:
  - request: *http.Request
  - target: any (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target any) error {
	if request.Body == nil {
		return nil
	}
	if err := json.NewDecoder(request.Body).Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
IntParam parses a named URL parameter as a positive integer id.

Returns:
  - int64: The parsed id
  - error: apperr.ValidationError naming the parameter
*/
func IntParam(request *http.Request, name string) (int64, error) {
	value, err := strconv.ParseInt(chi.URLParam(request, name), 10, 64)
	if err != nil || value < 1 {
		return 0, apperr.ValidationError("Invalid path parameter", apperr.FieldError{
			Field:   name,
			Message: "Must be a positive integer",
		})
	}
	return value, nil
}

/*
SessionToken returns the session token sent in the body, falling back to the
X-Session-ID header.
*/
func SessionToken(request *http.Request, fromBody string) string {
	if token := strings.TrimSpace(fromBody); token != "" {
		return token
	}
	return strings.TrimSpace(request.Header.Get(constants.HeaderSessionID))
}

// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package peer

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/taibuivan/librasync/internal/platform/apperr"
)

// Kind classifies a failed peer call.
type Kind string

const (
	// KindUnavailable covers transport failures, timeouts and 5xx/408/429 answers.
	KindUnavailable Kind = "PeerUnavailable"

	// KindRejected covers every other non-2xx answer.
	KindRejected Kind = "PeerRejected"
)

// Error is returned by the typed calls when the peer did not accept a request.
type Error struct {
	Kind   Kind
	Method string
	Path   string
	Status int    // 0 for transport failures
	Code   string // envelope code, when the peer sent one
	Body   string
	Cause  error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Method, e.Path, e.Cause)
	}
	return fmt.Sprintf("%s: %s %s returned %d: %s", e.Kind, e.Method, e.Path, e.Status, e.Body)
}

func (e *Error) Unwrap() error { return e.Cause }

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	var peerError *Error
	return errors.As(err, &peerError) && peerError.Kind == KindUnavailable
}

// IsSessionRejected reports whether the peer refused the admin token we sent.
func IsSessionRejected(err error) bool {
	var peerError *Error
	if !errors.As(err, &peerError) {
		return false
	}
	return peerError.Code == apperr.CodeSessionExpired || peerError.Code == apperr.CodeSessionNotFound
}

func classify(status int) Kind {
	switch {
	case status >= 500, status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return KindUnavailable
	default:
		return KindRejected
	}
}

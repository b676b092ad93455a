// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session implements the single-session token store shared by both services.

Each account holds at most one session row. A session is live until
last_activity + TTL; after that the next login rotates the token in place.
Using a token never refreshes it, so a session always ends TTL after it was
issued or rotated.

The backend runs it with [AdminPolicy] and the frontend with [PatronPolicy].
*/
package session

import "time"

// Session is the persisted login state of one account.
type Session struct {
	AccountID    string    `json:"account_id"`
	Token        string    `json:"session_id"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
}

// Expired reports whether now is strictly past last_activity + ttl.
func (session *Session) Expired(now time.Time, ttl time.Duration) bool {
	return now.After(session.LastActivity.Add(ttl))
}

// Policy fixes the lifetime of sessions for one service.
type Policy struct {
	Name string
	TTL  time.Duration
}

var (
	// AdminPolicy governs backend sessions.
	AdminPolicy = Policy{Name: "admin", TTL: 120 * time.Minute}

	// PatronPolicy governs frontend sessions.
	PatronPolicy = Policy{Name: "patron", TTL: 15 * time.Minute}
)

// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package peer

import (
	"context"
	"fmt"
	"net/http"
)

// # Request Bodies

// BookRequest is the body of book create, edit and upsert calls.
// SessionID is only sent to the backend, which requires an admin session.
type BookRequest struct {
	ID              int64  `json:"id,omitempty"`
	SessionID       string `json:"session_id,omitempty"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Category        string `json:"category"`
	Publisher       string `json:"publisher"`
	IsAvailable     bool   `json:"is_available"`
	AvailableCopies int    `json:"available_copies"`
}

// SessionRequest carries only an admin session, for book deletes.
type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// BorrowRecordRequest mirrors a frontend borrow on the backend.
type BorrowRecordRequest struct {
	ID           int64  `json:"id"`
	UserEmail    string `json:"user_email"`
	BookID       int64  `json:"book"`
	ReturnDate   string `json:"return_date"`
	DurationDays int    `json:"duration_days"`
}

// CredentialsRequest is the body of login and service-token calls.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserRequest registers a patron in the backend directory.
type UserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// TokenResponse is the data of a successful login or service-token call.
type TokenResponse struct {
	User      string `json:"user"`
	SessionID string `json:"session_id"`
}

// # Books

func bookPath(id int64) string {
	return fmt.Sprintf("/books/%d", id)
}

/*
ProbeBook reports whether the peer has a book with this id.

Any answer other than 2xx counts as "missing", except transient failures, which
are returned as errors so the job can be retried.
*/
func (client *Client) ProbeBook(ctx context.Context, id int64) (bool, error) {
	response, err := client.Do(ctx, http.MethodGet, bookPath(id), nil)
	if err != nil {
		return false, err
	}
	if response.OK() {
		return true, nil
	}
	if err := response.Err(http.MethodGet, bookPath(id)); IsTransient(err) {
		return false, err
	}
	return false, nil
}

// CreateBook posts a full snapshot to the peer's create endpoint.
func (client *Client) CreateBook(ctx context.Context, book BookRequest) error {
	_, err := client.call(ctx, http.MethodPost, "/books/add", book)
	return err
}

// EditBook replaces an existing book on the peer.
func (client *Client) EditBook(ctx context.Context, id int64, book BookRequest) error {
	_, err := client.call(ctx, http.MethodPut, bookPath(id), book)
	return err
}

// UpsertBook creates or replaces the book with one PUT. It reports whether
// the peer created it (201) rather than updated it (200).
func (client *Client) UpsertBook(ctx context.Context, id int64, book BookRequest) (bool, error) {
	book.ID = id
	response, err := client.call(ctx, http.MethodPut, bookPath(id), book)
	if err != nil {
		return false, err
	}
	return response.Status == http.StatusCreated, nil
}

// DeleteBook removes a book on the peer. sessionID may be empty for the frontend.
func (client *Client) DeleteBook(ctx context.Context, id int64, sessionID string) error {
	var body any
	if sessionID != "" {
		body = SessionRequest{SessionID: sessionID}
	}
	_, err := client.call(ctx, http.MethodDelete, bookPath(id), body)
	return err
}

// # Borrow Records

func borrowPath(id int64) string {
	return fmt.Sprintf("/borrowed-books/%d", id)
}

// CreateBorrowRecord mirrors a borrow on the backend.
func (client *Client) CreateBorrowRecord(ctx context.Context, record BorrowRecordRequest) error {
	_, err := client.call(ctx, http.MethodPost, borrowPath(record.ID), record)
	return err
}

// DeleteBorrowRecord removes the frontend's copy of a borrow record.
func (client *Client) DeleteBorrowRecord(ctx context.Context, id int64) error {
	_, err := client.call(ctx, http.MethodDelete, borrowPath(id), nil)
	return err
}

// # Accounts

// Login posts credentials and returns the raw response; 400 answers carry
// meaning to the caller, so they are not folded into an error.
func (client *Client) Login(ctx context.Context, email, password string) (*Response, error) {
	return client.Do(ctx, http.MethodPost, "/login", CredentialsRequest{Email: email, Password: password})
}

// ServiceToken asks the backend for a live admin token, issuing one if needed.
func (client *Client) ServiceToken(ctx context.Context, email, password string) (string, error) {
	response, err := client.call(ctx, http.MethodPost, "/service-token", CredentialsRequest{Email: email, Password: password})
	if err != nil {
		return "", err
	}

	var token TokenResponse
	if err := response.DecodeData(&token); err != nil || token.SessionID == "" {
		return "", &Error{Kind: KindRejected, Method: http.MethodPost, Path: "/service-token", Status: response.Status, Body: string(response.Body), Cause: err}
	}
	return token.SessionID, nil
}

// SyncUser registers a patron in the backend directory. Only 201 counts as success.
func (client *Client) SyncUser(ctx context.Context, user UserRequest) error {
	response, err := client.call(ctx, http.MethodPost, "/front-end/users", user)
	if err != nil {
		return err
	}
	if response.Status != http.StatusCreated {
		return &Error{Kind: KindRejected, Method: http.MethodPost, Path: "/front-end/users", Status: response.Status, Body: string(response.Body)}
	}
	return nil
}

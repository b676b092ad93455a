// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account handles registration and login for admins (backend) and
patrons (frontend), and the backend's directory of frontend users.

Login delegates to the session store, so a second login while a session is
live answers with the existing token instead of a new one.
*/
package account

import "time"

// Account is an admin on the backend or a patron on the frontend.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RegisterInput is the body of POST /register.
type RegisterInput struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// Credentials is the body of POST /login and POST /service-token.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the data of a successful login.
type LoginResult struct {
	User      string `json:"user"`
	SessionID string `json:"session_id"`
}

// FrontendUser is a patron as known to the backend.
type FrontendUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Field names for validation
const (
	FieldEmail       = "email"
	FieldFirstName   = "first_name"
	FieldLastName    = "last_name"
	FieldPassword    = "password"
	FieldCredentials = "credentials"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

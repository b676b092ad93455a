// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec holds credential helpers shared by admin and patron accounts.
package sec

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Accepted bcrypt work factors. [NewPasswords] uses DefaultCost for anything else.
const (
	MinCost     = bcrypt.MinCost
	MaxCost     = bcrypt.MaxCost
	DefaultCost = bcrypt.DefaultCost
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned by [Passwords.Hash] for passwords over [MaxPasswordBytes].
var ErrPasswordTooLong = errors.New("sec: password exceeds 72 bytes")

/*
Passwords hashes and verifies account passwords at one work factor.

Verification against a missing account still runs a full bcrypt comparison,
so login takes as long for an unknown email as for a wrong password.
*/
type Passwords struct {
	cost       int
	unknownRef []byte
}

func NewPasswords(cost int) *Passwords {
	if cost < MinCost || cost > MaxCost {
		cost = DefaultCost
	}

	unknownRef, err := bcrypt.GenerateFromPassword([]byte("librasync:no-such-account"), cost)
	if err != nil {
		panic(fmt.Sprintf("sec: reference hash: %v", err))
	}
	return &Passwords{cost: cost, unknownRef: unknownRef}
}

// Hash returns the bcrypt hash of plain.
func (passwords *Passwords) Hash(plain string) (string, error) {
	if len(plain) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), passwords.cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plain matches hash. An empty hash stands for an
// account that does not exist and never matches.
func (passwords *Passwords) Verify(plain, hash string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(passwords.unknownRef, []byte(plain))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

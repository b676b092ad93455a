// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/librasync/internal/platform/sec"
)

func TestPasswords_HashAndVerify(t *testing.T) {
	passwords := sec.NewPasswords(sec.MinCost)

	hash, err := passwords.Hash("correct horse")
	require.NoError(t, err)

	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, passwords.Verify("correct horse", hash))
	assert.False(t, passwords.Verify("battery staple", hash))

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, sec.MinCost, cost)
}

func TestPasswords_UnknownAccountNeverMatches(t *testing.T) {
	passwords := sec.NewPasswords(sec.MinCost)

	assert.False(t, passwords.Verify("", ""))
	assert.False(t, passwords.Verify("librasync:no-such-account", ""))
}

func TestPasswords_TooLong(t *testing.T) {
	passwords := sec.NewPasswords(sec.MinCost)

	_, err := passwords.Hash(strings.Repeat("a", sec.MaxPasswordBytes+1))
	assert.ErrorIs(t, err, sec.ErrPasswordTooLong)

	_, err = passwords.Hash(strings.Repeat("a", sec.MaxPasswordBytes))
	assert.NoError(t, err)
}

func TestNewPasswords_OutOfRangeCostUsesDefault(t *testing.T) {
	for _, cost := range []int{0, 1, sec.MaxCost + 1} {
		passwords := sec.NewPasswords(cost)
		hash, err := passwords.Hash("analytical")
		require.NoError(t, err)

		got, err := bcrypt.Cost([]byte(hash))
		require.NoError(t, err)
		assert.Equal(t, sec.DefaultCost, got, cost)
	}
}

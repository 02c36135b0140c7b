// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"errors"
	"strings"
)

// Sentinel errors for constraint violations the handlers care about.
var (
	// ErrUsernameTaken is returned when creating a user with a username that
	// already exists.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrDuplicateLike is returned when inserting a like that already exists
	// for the same (user, cafe) pair.
	ErrDuplicateLike = errors.New("cafe already liked")
)

// isUniqueViolation reports whether err is a sqlite UNIQUE constraint failure.
// Neither modernc.org/sqlite nor mattn/go-sqlite3 exposes typed constraint
// errors through database/sql, so this matches the driver error text shared by
// both.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

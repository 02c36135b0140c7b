// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"cafehub/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request-scoped data.
const (
	ContextKeyUser ContextKey = "user"
)

// SessionKeyUserID is the session key for the authenticated user id.
const SessionKeyUserID = "user_id"

// Flash messages used by the auth gates.
const (
	NotLoggedInMsg  = "You are not logged in."
	UnauthorizedMsg = "Access unauthorized."
)

// setFlash writes a flash message directly into the session. The middleware
// package cannot depend on render (render depends on session state only), so
// it uses the same session keys the renderer pops.
func setFlash(sm *scs.SessionManager, r *http.Request, message, flashType string) {
	sm.Put(r.Context(), "flash", message)
	sm.Put(r.Context(), "flash_type", flashType)
}

// OptionalLoadUser creates middleware that resolves the session user id to a
// user record in the request context. Requests without a valid session pass
// through with no user in context; a stale id clears the session.
func OptionalLoadUser(sm *scs.SessionManager, db *sql.DB) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sm.GetInt64(r.Context(), SessionKeyUserID)
			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}

			user, err := queries.GetUserByID(r.Context(), userID)
			if err != nil {
				// User no longer exists; drop the stale session.
				_ = sm.Destroy(r.Context())
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireLogin creates middleware gating routes to logged-in users.
// Anonymous requests are flashed and redirected to the login page.
func RequireLogin(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetUser(r) == nil {
				setFlash(sm, r, NotLoggedInMsg, "error")
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin creates middleware gating routes to admin users.
// Should be used after OptionalLoadUser and RequireLogin.
func RequireAdmin(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				setFlash(sm, r, NotLoggedInMsg, "error")
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			if !user.Admin {
				slog.Warn("access denied",
					"status", http.StatusForbidden,
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", user.ID,
					"remote_addr", r.RemoteAddr,
				)
				setFlash(sm, r, UnauthorizedMsg, "error")
				http.Redirect(w, r, "/cafes", http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUser retrieves the current user from the request context.
// Returns nil if no user is in context.
func GetUser(r *http.Request) *store.User {
	user, ok := r.Context().Value(ContextKeyUser).(store.User)
	if !ok {
		return nil
	}
	return &user
}

// GetUserID returns the current user's ID from context, or 0 if not found.
// Safe to use in logging where a zero-value is acceptable.
func GetUserID(r *http.Request) int64 {
	if user := GetUser(r); user != nil {
		return user.ID
	}
	return 0
}

// GetUserIDPtr returns a pointer to the current user's ID from context, or nil
// if not found. Useful for optional user id parameters in event logging.
func GetUserIDPtr(r *http.Request) *int64 {
	if user := GetUser(r); user != nil {
		id := user.ID
		return &id
	}
	return nil
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"cafehub/internal/auth"
	"cafehub/internal/middleware"
	"cafehub/internal/render"
	"cafehub/internal/service"
	"cafehub/internal/store"
)

// AuthHandler handles signup, login and logout.
type AuthHandler struct {
	queries        *store.Queries
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	events         *service.EventService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, events *service.EventService) *AuthHandler {
	return &AuthHandler{
		queries:        store.New(db),
		renderer:       renderer,
		sessionManager: sm,
		events:         events,
	}
}

// signupPageData is the template payload for the signup form.
type signupPageData struct {
	Form   SignupForm
	Errors formErrors
}

// SignupForm renders the signup page. Already-authenticated users are sent
// to the cafe list instead.
func (h *AuthHandler) SignupForm(w http.ResponseWriter, r *http.Request) {
	if h.sessionManager.GetInt64(r.Context(), middleware.SessionKeyUserID) > 0 {
		http.Redirect(w, r, RouteCafes, http.StatusSeeOther)
		return
	}

	h.renderSignup(w, r, signupPageData{Errors: make(formErrors)})
}

// Signup processes a signup submission. On success the new user is logged in
// immediately. A taken username re-renders the form with the submitted values.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, RouteSignup) {
		return
	}

	form := signupFormFromRequest(r)
	if errs := form.Validate(); !errs.Valid() {
		h.renderSignup(w, r, signupPageData{Form: form, Errors: errs})
		return
	}

	hash, err := auth.HashPassword(form.Password)
	if err != nil {
		logAndInternalError(w, "failed to hash password", "error", err)
		return
	}

	now := time.Now()
	user, err := h.queries.CreateUser(r.Context(), store.CreateUserParams{
		Username:     form.Username,
		Email:        form.Email,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		Description:  form.Description,
		ImageURL:     form.ImageURL,
		PasswordHash: hash,
		Admin:        false,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			errs := make(formErrors)
			errs.add("username", msgUsernameTaken)
			h.renderer.SetFlash(r, msgUsernameTaken, flashTypeError)
			h.renderSignup(w, r, signupPageData{Form: form, Errors: errs})
			return
		}
		logAndInternalError(w, "failed to create user", "error", err)
		return
	}

	// Log the new user in. Renew the session token to prevent fixation.
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "failed to renew session token", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), middleware.SessionKeyUserID, user.ID)

	_ = h.events.LogAuthEvent(r.Context(), store.EventLevelInfo, "user signed up",
		&user.ID, clientIP(r), h.events.RequestMetadata(r))

	flashSuccess(w, r, h.renderer, RouteCafes, msgSignedUp)
}

func (h *AuthHandler) renderSignup(w http.ResponseWriter, r *http.Request, data signupPageData) {
	if err := h.renderer.Render(w, r, "auth/signup", render.TemplateData{
		Title: "Sign Up",
		Data:  data,
		User:  middleware.GetUser(r),
	}); err != nil {
		logAndInternalError(w, "failed to render signup form", "error", err)
	}
}

// loginPageData is the template payload for the login form.
type loginPageData struct {
	Form   LoginForm
	Errors formErrors
}

// LoginForm renders the login page. Already-authenticated users are sent to
// the cafe list instead.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if h.sessionManager.GetInt64(r.Context(), middleware.SessionKeyUserID) > 0 {
		http.Redirect(w, r, RouteCafes, http.StatusSeeOther)
		return
	}

	h.renderLogin(w, r, loginPageData{Errors: make(formErrors)})
}

// Login processes a login submission. Invalid credentials re-render the form
// with a generic message that does not reveal which field was wrong.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, RouteLogin) {
		return
	}

	form := loginFormFromRequest(r)
	if errs := form.Validate(); !errs.Valid() {
		h.renderLogin(w, r, loginPageData{Form: form, Errors: errs})
		return
	}

	user, err := h.queries.GetUserByUsername(r.Context(), form.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Same message as a wrong password to prevent enumeration.
			_ = h.events.LogAuthEvent(r.Context(), store.EventLevelWarning, "failed login attempt",
				nil, clientIP(r), map[string]any{"username": form.Username})
		} else {
			slog.Error("database error during login", "error", err)
		}
		h.failLogin(w, r, form)
		return
	}

	ok, err := auth.CheckPassword(form.Password, user.PasswordHash)
	if err != nil {
		logAndInternalError(w, "failed to verify password", "error", err)
		return
	}
	if !ok {
		_ = h.events.LogAuthEvent(r.Context(), store.EventLevelWarning, "failed login attempt",
			&user.ID, clientIP(r), map[string]any{"username": form.Username})
		h.failLogin(w, r, form)
		return
	}

	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "failed to renew session token", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), middleware.SessionKeyUserID, user.ID)

	if err := h.queries.UpdateUserLastLogin(r.Context(), store.UpdateUserLastLoginParams{
		LastLoginAt: sql.NullTime{Time: time.Now(), Valid: true},
		ID:          user.ID,
	}); err != nil {
		slog.Warn("failed to record last login", "error", err, "user_id", user.ID)
	}

	// Transparently upgrade hashes created with older parameters.
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(form.Password); err == nil {
			if err := h.queries.UpdateUserPassword(r.Context(), store.UpdateUserPasswordParams{
				PasswordHash: newHash,
				UpdatedAt:    time.Now(),
				ID:           user.ID,
			}); err != nil {
				slog.Warn("failed to upgrade password hash", "error", err, "user_id", user.ID)
			}
		}
	}

	_ = h.events.LogAuthEvent(r.Context(), store.EventLevelInfo, "user logged in",
		&user.ID, clientIP(r), h.events.RequestMetadata(r))

	flashSuccess(w, r, h.renderer, RouteCafes, fmt.Sprintf("Hello, %s!", user.Username))
}

func (h *AuthHandler) failLogin(w http.ResponseWriter, r *http.Request, form LoginForm) {
	form.Password = ""
	h.renderer.SetFlash(r, msgInvalidCreds, flashTypeError)
	h.renderLogin(w, r, loginPageData{Form: form, Errors: make(formErrors)})
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, data loginPageData) {
	if err := h.renderer.Render(w, r, "auth/login", render.TemplateData{
		Title: "Log In",
		Data:  data,
		User:  middleware.GetUser(r),
	}); err != nil {
		logAndInternalError(w, "failed to render login form", "error", err)
	}
}

// Logout destroys the session. Anonymous requests get an unauthorized flash
// instead.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		flashError(w, r, h.renderer, RouteRoot, middleware.UnauthorizedMsg)
		return
	}

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		logAndInternalError(w, "failed to destroy session", "error", err)
		return
	}

	_ = h.events.LogAuthEvent(r.Context(), store.EventLevelInfo, "user logged out",
		&user.ID, clientIP(r), nil)

	flashSuccess(w, r, h.renderer, RouteLogin, msgLoggedOut)
}

// clientIP extracts the remote IP without the port.
func clientIP(r *http.Request) string {
	return service.ClientIP(r)
}

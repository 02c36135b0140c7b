// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"net/http"
	"time"

	"cafehub/internal/middleware"
	"cafehub/internal/render"
	"cafehub/internal/service"
	"cafehub/internal/store"
)

// ProfileHandler handles the profile pages for the logged-in user.
type ProfileHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
	events   *service.EventService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(db *sql.DB, renderer *render.Renderer, events *service.EventService) *ProfileHandler {
	return &ProfileHandler{
		queries:  store.New(db),
		renderer: renderer,
		events:   events,
	}
}

// profileData is the template payload for the profile page.
type profileData struct {
	Profile    store.User
	LikedCafes []store.CafeWithCity
}

// Show renders the logged-in user's profile with their liked cafes.
func (h *ProfileHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	liked, err := h.queries.ListLikedCafes(r.Context(), user.ID)
	if err != nil {
		logAndInternalError(w, "failed to list liked cafes", "error", err, "user_id", user.ID)
		return
	}

	if err := h.renderer.Render(w, r, "profile/detail", render.TemplateData{
		Title: user.Username,
		Data:  profileData{Profile: *user, LikedCafes: liked},
		User:  user,
	}); err != nil {
		logAndInternalError(w, "failed to render profile", "error", err)
	}
}

// profileFormData is the template payload for the profile edit form.
type profileFormData struct {
	Form   ProfileForm
	Errors formErrors
}

// EditForm renders the profile edit form prefilled with current values. The
// default profile image is shown as an empty field so an unchanged submission
// does not turn the placeholder path into an explicit value.
func (h *ProfileHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	form := ProfileForm{
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Description: user.Description,
		Email:       user.Email,
		ImageURL:    user.ImageURL,
	}
	if form.ImageURL == store.DefaultProfileImageURL {
		form.ImageURL = ""
	}

	h.renderEditForm(w, r, profileFormData{Form: form, Errors: make(formErrors)})
}

// Edit updates the logged-in user's profile. An empty image URL reverts to
// the default placeholder.
func (h *ProfileHandler) Edit(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	if !parseFormOrRedirect(w, r, h.renderer, RouteProfileEdit) {
		return
	}

	form := profileFormFromRequest(r)
	if errs := form.Validate(); !errs.Valid() {
		h.renderEditForm(w, r, profileFormData{Form: form, Errors: errs})
		return
	}

	if err := h.queries.UpdateUserProfile(r.Context(), store.UpdateUserProfileParams{
		Email:       form.Email,
		FirstName:   form.FirstName,
		LastName:    form.LastName,
		Description: form.Description,
		ImageURL:    form.ImageURL,
		UpdatedAt:   time.Now(),
		ID:          user.ID,
	}); err != nil {
		logAndInternalError(w, "failed to update profile", "error", err, "user_id", user.ID)
		return
	}

	_ = h.events.LogUserEvent(r.Context(), store.EventLevelInfo, "profile updated",
		&user.ID, clientIP(r), nil)

	flashSuccess(w, r, h.renderer, RouteProfile, msgProfileEdited)
}

func (h *ProfileHandler) renderEditForm(w http.ResponseWriter, r *http.Request, data profileFormData) {
	if err := h.renderer.Render(w, r, "profile/edit", render.TemplateData{
		Title: "Edit Profile",
		Data:  data,
		User:  middleware.GetUser(r),
	}); err != nil {
		logAndInternalError(w, "failed to render profile edit form", "error", err)
	}
}

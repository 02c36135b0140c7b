// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cafehub/internal/cache"
	"cafehub/internal/mapimage"
	"cafehub/internal/middleware"
	"cafehub/internal/render"
	"cafehub/internal/service"
	"cafehub/internal/store"
)

// CafeHandler handles the cafe directory pages and admin CRUD.
type CafeHandler struct {
	queries    *store.Queries
	renderer   *render.Renderer
	events     *service.EventService
	maps       *mapimage.Dispatcher
	likeCounts *cache.LikeCounts
	notFound   http.HandlerFunc
}

// NewCafeHandler creates a new CafeHandler. maps and likeCounts may be nil.
func NewCafeHandler(db *sql.DB, renderer *render.Renderer, events *service.EventService,
	maps *mapimage.Dispatcher, likeCounts *cache.LikeCounts, notFound http.HandlerFunc) *CafeHandler {
	return &CafeHandler{
		queries:    store.New(db),
		renderer:   renderer,
		events:     events,
		maps:       maps,
		likeCounts: likeCounts,
		notFound:   notFound,
	}
}

// cafeListData is the template payload for the cafe list page.
type cafeListData struct {
	Cafes []store.CafeWithCity
}

// List renders all cafes ordered by name.
func (h *CafeHandler) List(w http.ResponseWriter, r *http.Request) {
	cafes, err := h.queries.ListCafes(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list cafes", "error", err)
		return
	}

	if err := h.renderer.Render(w, r, "cafe/list", render.TemplateData{
		Title: "Cafes",
		Data:  cafeListData{Cafes: cafes},
		User:  middleware.GetUser(r),
	}); err != nil {
		logAndInternalError(w, "failed to render cafe list", "error", err)
	}
}

// cafeDetailData is the template payload for the cafe detail page.
type cafeDetailData struct {
	Cafe      store.CafeWithCity
	LikeCount int64
	MapURL    string
}

// Detail renders a single cafe. The map image is only referenced when the
// fetched file actually exists on disk.
func (h *CafeHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.notFound(w, r)
		return
	}

	cafe, err := h.queries.GetCafe(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.notFound(w, r)
			return
		}
		logAndInternalError(w, "failed to get cafe", "error", err, "cafe_id", id)
		return
	}

	data := cafeDetailData{
		Cafe:      cafe,
		LikeCount: h.likeCount(r.Context(), id),
	}
	if h.maps != nil && h.maps.HasImage(id) {
		data.MapURL = mapimage.ImageURL(id)
	}

	if err := h.renderer.Render(w, r, "cafe/detail", render.TemplateData{
		Title: cafe.Name,
		Data:  data,
		User:  middleware.GetUser(r),
	}); err != nil {
		logAndInternalError(w, "failed to render cafe detail", "error", err)
	}
}

// likeCount returns the like count for a cafe, preferring the cache and
// falling back to the database on a miss.
func (h *CafeHandler) likeCount(ctx context.Context, cafeID int64) int64 {
	if h.likeCounts != nil {
		if count, err := h.likeCounts.Get(ctx, cafeID); err == nil {
			return count
		}
	}

	count, err := h.queries.CountLikesForCafe(ctx, cafeID)
	if err != nil {
		slog.Warn("failed to count likes", "error", err, "cafe_id", cafeID)
		return 0
	}
	if h.likeCounts != nil {
		if err := h.likeCounts.Set(ctx, cafeID, count); err != nil {
			slog.Debug("failed to cache like count", "error", err, "cafe_id", cafeID)
		}
	}
	return count
}

// cafeFormData is the template payload for the add/edit cafe form.
type cafeFormData struct {
	Form   CafeForm
	Errors formErrors
	Cities []store.City
	IsEdit bool
	CafeID int64
}

// AddForm renders the empty add-cafe form.
func (h *CafeHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	cities, err := h.queries.ListCities(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list cities", "error", err)
		return
	}

	h.renderCafeForm(w, r, "Add Cafe", cafeFormData{
		Errors: make(formErrors),
		Cities: cities,
	})
}

// Add creates a cafe and queues its static map fetch.
func (h *CafeHandler) Add(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, RouteCafesAdd) {
		return
	}

	cities, err := h.queries.ListCities(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list cities", "error", err)
		return
	}

	form := cafeFormFromRequest(r)
	if errs := form.Validate(cityCodeSet(cities)); !errs.Valid() {
		h.renderCafeForm(w, r, "Add Cafe", cafeFormData{
			Form:   form,
			Errors: errs,
			Cities: cities,
		})
		return
	}

	now := time.Now()
	cafe, err := h.queries.CreateCafe(r.Context(), store.CreateCafeParams{
		Name:        form.Name,
		Description: form.Description,
		URL:         form.URL,
		Address:     form.Address,
		CityCode:    form.CityCode,
		ImageURL:    form.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		logAndInternalError(w, "failed to create cafe", "error", err)
		return
	}

	if h.maps != nil {
		h.maps.Enqueue(&cafe)
	}

	_ = h.events.LogCafeEvent(r.Context(), store.EventLevelInfo, "cafe created",
		middleware.GetUserIDPtr(r), clientIP(r), map[string]any{"cafe_id": cafe.ID, "name": cafe.Name})

	flashSuccess(w, r, h.renderer, cafeDetailPath(cafe.ID), fmt.Sprintf("%s added!", cafe.Name))
}

// EditForm renders the edit form prefilled with the cafe's current values.
// A default image URL is shown as empty so saving without changes does not
// persist the placeholder path as an explicit value.
func (h *CafeHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.notFound(w, r)
		return
	}

	cafe, err := h.queries.GetCafe(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.notFound(w, r)
			return
		}
		logAndInternalError(w, "failed to get cafe", "error", err, "cafe_id", id)
		return
	}

	cities, err := h.queries.ListCities(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list cities", "error", err)
		return
	}

	form := CafeForm{
		Name:        cafe.Name,
		Description: cafe.Description,
		URL:         cafe.URL,
		Address:     cafe.Address,
		CityCode:    cafe.CityCode,
		ImageURL:    cafe.ImageURL,
	}
	if form.ImageURL == store.DefaultCafeImageURL {
		form.ImageURL = ""
	}

	h.renderCafeForm(w, r, "Edit "+cafe.Name, cafeFormData{
		Form:   form,
		Errors: make(formErrors),
		Cities: cities,
		IsEdit: true,
		CafeID: cafe.ID,
	})
}

// Edit updates a cafe. The map image is refetched only when the address or
// city changed, so renames do not burn provider quota.
func (h *CafeHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.notFound(w, r)
		return
	}

	cafe, err := h.queries.GetCafe(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.notFound(w, r)
			return
		}
		logAndInternalError(w, "failed to get cafe", "error", err, "cafe_id", id)
		return
	}

	if !parseFormOrRedirect(w, r, h.renderer, cafeDetailPath(id)+"/edit") {
		return
	}

	cities, err := h.queries.ListCities(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list cities", "error", err)
		return
	}

	form := cafeFormFromRequest(r)
	if errs := form.Validate(cityCodeSet(cities)); !errs.Valid() {
		h.renderCafeForm(w, r, "Edit "+cafe.Name, cafeFormData{
			Form:   form,
			Errors: errs,
			Cities: cities,
			IsEdit: true,
			CafeID: cafe.ID,
		})
		return
	}

	locationChanged := form.Address != cafe.Address || form.CityCode != cafe.CityCode

	if err := h.queries.UpdateCafe(r.Context(), store.UpdateCafeParams{
		Name:        form.Name,
		Description: form.Description,
		URL:         form.URL,
		Address:     form.Address,
		CityCode:    form.CityCode,
		ImageURL:    form.ImageURL,
		UpdatedAt:   time.Now(),
		ID:          cafe.ID,
	}); err != nil {
		logAndInternalError(w, "failed to update cafe", "error", err, "cafe_id", id)
		return
	}

	if locationChanged && h.maps != nil {
		updated, err := h.queries.GetCafe(r.Context(), cafe.ID)
		if err != nil {
			slog.Warn("failed to reload cafe for map refetch", "error", err, "cafe_id", cafe.ID)
		} else {
			h.maps.Enqueue(&updated)
		}
	}

	_ = h.events.LogCafeEvent(r.Context(), store.EventLevelInfo, "cafe updated",
		middleware.GetUserIDPtr(r), clientIP(r), map[string]any{"cafe_id": cafe.ID, "name": form.Name})

	flashSuccess(w, r, h.renderer, cafeDetailPath(cafe.ID), fmt.Sprintf("%s edited!", form.Name))
}

// Delete removes a cafe along with its likes and fetched map image.
func (h *CafeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.notFound(w, r)
		return
	}

	cafe, err := h.queries.GetCafe(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.notFound(w, r)
			return
		}
		logAndInternalError(w, "failed to get cafe", "error", err, "cafe_id", id)
		return
	}

	if h.maps != nil {
		if err := h.maps.Remove(cafe.ID); err != nil {
			slog.Warn("failed to remove map image", "error", err, "cafe_id", cafe.ID)
		}
	}
	if h.likeCounts != nil {
		if err := h.likeCounts.Invalidate(r.Context(), cafe.ID); err != nil {
			slog.Debug("failed to invalidate like count", "error", err, "cafe_id", cafe.ID)
		}
	}

	if err := h.queries.DeleteCafe(r.Context(), cafe.ID); err != nil {
		logAndInternalError(w, "failed to delete cafe", "error", err, "cafe_id", id)
		return
	}

	_ = h.events.LogCafeEvent(r.Context(), store.EventLevelInfo, "cafe deleted",
		middleware.GetUserIDPtr(r), clientIP(r), map[string]any{"cafe_id": cafe.ID, "name": cafe.Name})

	flashSuccess(w, r, h.renderer, RouteCafes, fmt.Sprintf("%s deleted.", cafe.Name))
}

func (h *CafeHandler) renderCafeForm(w http.ResponseWriter, r *http.Request, title string, data cafeFormData) {
	if err := h.renderer.Render(w, r, "cafe/form", render.TemplateData{
		Title: title,
		Data:  data,
		User:  middleware.GetUser(r),
	}); err != nil {
		logAndInternalError(w, "failed to render cafe form", "error", err)
	}
}

// cityCodeSet builds the membership set the form validator checks against.
func cityCodeSet(cities []store.City) map[string]bool {
	codes := make(map[string]bool, len(cities))
	for _, c := range cities {
		codes[c.Code] = true
	}
	return codes
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"cafehub/internal/cache"
	"cafehub/internal/middleware"
	"cafehub/internal/service"
	"cafehub/internal/store"
)

// LikeAPIHandler serves the likes JSON API consumed by the like button
// script. Unlike the page handlers, authentication failures answer with a
// JSON error instead of a redirect.
type LikeAPIHandler struct {
	queries    *store.Queries
	events     *service.EventService
	likeCounts *cache.LikeCounts
}

// NewLikeAPIHandler creates a new LikeAPIHandler. likeCounts may be nil.
func NewLikeAPIHandler(db *sql.DB, events *service.EventService, likeCounts *cache.LikeCounts) *LikeAPIHandler {
	return &LikeAPIHandler{
		queries:    store.New(db),
		events:     events,
		likeCounts: likeCounts,
	}
}

// likeRequest is the request body for the like/unlike endpoints.
type likeRequest struct {
	CafeID int64 `json:"cafe_id"`
}

// requireAPIUser resolves the authenticated user or writes a 401 JSON error.
func (h *LikeAPIHandler) requireAPIUser(w http.ResponseWriter, r *http.Request) (*store.User, bool) {
	user := middleware.GetUser(r)
	if user == nil {
		writeJSONError(w, http.StatusUnauthorized, middleware.NotLoggedInMsg)
		return nil, false
	}
	return user, true
}

// requireCafe checks that the cafe exists or writes a 404 JSON error.
func (h *LikeAPIHandler) requireCafe(w http.ResponseWriter, r *http.Request, cafeID int64) bool {
	if cafeID <= 0 {
		writeJSONError(w, http.StatusBadRequest, "cafe_id is required")
		return false
	}
	if _, err := h.queries.GetCafe(r.Context(), cafeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "cafe not found")
		} else {
			slog.Error("failed to get cafe", "error", err, "cafe_id", cafeID)
			writeJSONError(w, http.StatusInternalServerError, "internal error")
		}
		return false
	}
	return true
}

// Status reports whether the current user has liked the cafe given by the
// cafe_id query parameter.
func (h *LikeAPIHandler) Status(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAPIUser(w, r)
	if !ok {
		return
	}

	cafeID, err := strconv.ParseInt(r.URL.Query().Get("cafe_id"), 10, 64)
	if err != nil || cafeID <= 0 {
		writeJSONError(w, http.StatusBadRequest, "cafe_id is required")
		return
	}

	liked, err := h.queries.HasLike(r.Context(), store.LikeParams{UserID: user.ID, CafeID: cafeID})
	if err != nil {
		slog.Error("failed to check like", "error", err, "user_id", user.ID, "cafe_id", cafeID)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"likes": liked})
}

// Like records a like. Liking an already-liked cafe fails with 409 rather
// than silently succeeding.
func (h *LikeAPIHandler) Like(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAPIUser(w, r)
	if !ok {
		return
	}

	var req likeRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if !h.requireCafe(w, r, req.CafeID) {
		return
	}

	if err := h.queries.CreateLike(r.Context(), store.LikeParams{UserID: user.ID, CafeID: req.CafeID}); err != nil {
		if errors.Is(err, store.ErrDuplicateLike) {
			writeJSONError(w, http.StatusConflict, "cafe already liked")
			return
		}
		slog.Error("failed to create like", "error", err, "user_id", user.ID, "cafe_id", req.CafeID)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.invalidateCount(r, req.CafeID)

	writeJSON(w, http.StatusOK, map[string]any{"liked": req.CafeID})
}

// Unlike removes a like. Removing a like that does not exist fails with 404.
func (h *LikeAPIHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAPIUser(w, r)
	if !ok {
		return
	}

	var req likeRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if !h.requireCafe(w, r, req.CafeID) {
		return
	}

	if err := h.queries.DeleteLike(r.Context(), store.LikeParams{UserID: user.ID, CafeID: req.CafeID}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "like not found")
			return
		}
		slog.Error("failed to delete like", "error", err, "user_id", user.ID, "cafe_id", req.CafeID)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.invalidateCount(r, req.CafeID)

	writeJSON(w, http.StatusOK, map[string]any{"unliked": req.CafeID})
}

func (h *LikeAPIHandler) invalidateCount(r *http.Request, cafeID int64) {
	if h.likeCounts == nil {
		return
	}
	if err := h.likeCounts.Invalidate(r.Context(), cafeID); err != nil {
		slog.Debug("failed to invalidate like count", "error", err, "cafe_id", cafeID)
	}
}

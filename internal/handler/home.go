// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"

	"cafehub/internal/middleware"
	"cafehub/internal/render"
	"cafehub/internal/store"
)

// PageHandler serves the homepage and error pages.
type PageHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(db *sql.DB, renderer *render.Renderer) *PageHandler {
	return &PageHandler{
		queries:  store.New(db),
		renderer: renderer,
	}
}

// homeData is the template payload for the homepage.
type homeData struct {
	CafeCount int64
}

// Home renders the landing page.
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	count, err := h.queries.CountCafes(r.Context())
	if err != nil {
		slog.Warn("failed to count cafes", "error", err)
	}

	if err := h.renderer.Render(w, r, "pages/home", render.TemplateData{
		Title: "Where Coffee Dreams Come True",
		Data:  homeData{CafeCount: count},
		User:  middleware.GetUser(r),
	}); err != nil {
		logAndInternalError(w, "failed to render homepage", "error", err)
	}
}

// NotFound renders the 404 page.
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.RenderStatus(w, r, "pages/404", http.StatusNotFound, render.TemplateData{
		Title: "Not Found",
		User:  middleware.GetUser(r),
	}); err != nil {
		slog.Error("failed to render 404 page", "error", err)
		http.Error(w, "Not Found", http.StatusNotFound)
	}
}

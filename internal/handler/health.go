// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"cafehub/internal/middleware"
	"cafehub/internal/store"
	"cafehub/internal/version"
)

// HealthHandler handles liveness and readiness checks.
type HealthHandler struct {
	db        *sql.DB
	queries   *store.Queries
	mapsDir   string
	build     version.Info
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *sql.DB, mapsDir string, build version.Info) *HealthHandler {
	return &HealthHandler{
		db:        db,
		queries:   store.New(db),
		mapsDir:   mapsDir,
		build:     build,
		startTime: time.Now(),
	}
}

// healthCheck is the result of a single dependency check.
type healthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthStatusPublic is the minimal response for unauthenticated callers.
type healthStatusPublic struct {
	Status string `json:"status"`
}

// healthStatus is the detailed response for admin callers.
type healthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit,omitempty"`
	Checks    map[string]healthCheck `json:"checks"`
}

// Health reports process health. Anonymous callers get only the overall
// status; admins get per-dependency details.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]healthCheck{
		"database": h.checkDatabase(r.Context()),
		"maps_dir": h.checkMapsDir(),
	}

	status := "healthy"
	for _, c := range checks {
		if c.Status != "healthy" {
			status = "degraded"
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	user := middleware.GetUser(r)
	if user == nil || !user.Admin {
		_ = json.NewEncoder(w).Encode(healthStatusPublic{Status: status})
		return
	}

	_ = json.NewEncoder(w).Encode(healthStatus{
		Status:    status,
		Timestamp: time.Now(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.build.Version,
		GitCommit: h.build.GitCommit,
		Checks:    checks,
	})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) healthCheck {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		return healthCheck{Status: "unhealthy", Message: err.Error()}
	}
	if _, err := h.queries.CountCities(ctx); err != nil {
		return healthCheck{Status: "unhealthy", Message: err.Error()}
	}
	return healthCheck{Status: "healthy"}
}

func (h *HealthHandler) checkMapsDir() healthCheck {
	if h.mapsDir == "" {
		return healthCheck{Status: "healthy", Message: "maps disabled"}
	}
	info, err := os.Stat(h.mapsDir)
	if err != nil {
		if os.IsNotExist(err) {
			// The dispatcher creates it on first fetch.
			return healthCheck{Status: "healthy", Message: "not yet created"}
		}
		return healthCheck{Status: "unhealthy", Message: err.Error()}
	}
	if !info.IsDir() {
		return healthCheck{Status: "unhealthy", Message: "not a directory"}
	}
	return healthCheck{Status: "healthy"}
}

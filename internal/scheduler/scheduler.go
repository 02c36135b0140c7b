// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance jobs: reconciling missing map
// images and pruning old audit events.
package scheduler

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"cafehub/internal/mapimage"
	"cafehub/internal/store"
)

// EventRetention is how long audit events are kept.
const EventRetention = 90 * 24 * time.Hour

// Scheduler handles periodic maintenance tasks.
type Scheduler struct {
	db     *sql.DB
	maps   *mapimage.Dispatcher
	cron   *cron.Cron
	logger *slog.Logger
}

// New creates a scheduler. maps may be nil when map fetching is disabled.
func New(db *sql.DB, maps *mapimage.Dispatcher, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		db:     db,
		maps:   maps,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start registers the cron jobs and starts the scheduler.
// Map reconcile runs nightly at 03:10, event pruning at 03:40.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("10 3 * * *", func() {
		if err := s.reconcileMapImages(); err != nil {
			s.logger.Error("map reconcile failed", "error", err)
		}
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc("40 3 * * *", func() {
		if err := s.pruneEvents(); err != nil {
			s.logger.Error("event pruning failed", "error", err)
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// reconcileMapImages re-queues a fetch for every cafe missing a map image on
// disk. This catches jobs dropped from a full queue and fetches that failed
// all their retries.
func (s *Scheduler) reconcileMapImages() error {
	if s.maps == nil || !s.maps.Enabled() {
		return nil
	}

	ctx := context.Background()
	queries := store.New(s.db)

	ids, err := queries.ListCafeIDs(ctx)
	if err != nil {
		return err
	}

	var requeued int
	for _, id := range ids {
		if s.maps.HasImage(id) {
			continue
		}

		cafe, err := queries.GetCafe(ctx, id)
		if err != nil {
			s.logger.Error("map reconcile: loading cafe failed", "cafe_id", id, "error", err)
			continue
		}

		s.maps.Enqueue(&cafe)
		requeued++
	}

	if requeued > 0 {
		s.logger.Info("map reconcile queued fetches", "count", requeued)
	}
	return nil
}

// pruneEvents deletes audit events older than EventRetention.
func (s *Scheduler) pruneEvents() error {
	cutoff := time.Now().Add(-EventRetention)
	return store.New(s.db).DeleteOldEvents(context.Background(), cutoff)
}

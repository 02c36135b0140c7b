// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"testing"
	"time"

	"cafehub/internal/mapimage"
	"cafehub/internal/store"
	"cafehub/internal/testutil"
)

func TestStartStop(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	s := New(db, nil, testutil.TestLogger())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
}

func TestPruneEvents(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	q := store.New(db)
	ctx := context.Background()

	// One stale event, one fresh
	_, err := q.CreateEvent(ctx, store.CreateEventParams{
		Level:     store.EventLevelInfo,
		Category:  store.EventCategorySystem,
		Message:   "ancient event",
		CreatedAt: time.Now().Add(-EventRetention - time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	_, err = q.CreateEvent(ctx, store.CreateEventParams{
		Level:     store.EventLevelInfo,
		Category:  store.EventCategorySystem,
		Message:   "recent event",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	s := New(db, nil, testutil.TestLogger())
	if err := s.pruneEvents(); err != nil {
		t.Fatalf("pruneEvents: %v", err)
	}

	events, err := q.ListRecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event after pruning, got %d", len(events))
	}
	if events[0].Message != "recent event" {
		t.Errorf("wrong event survived: %s", events[0].Message)
	}
}

func TestReconcileMapImagesDisabled(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	// No dispatcher at all
	s := New(db, nil, testutil.TestLogger())
	if err := s.reconcileMapImages(); err != nil {
		t.Fatalf("reconcileMapImages: %v", err)
	}

	// Dispatcher without API key is disabled and must be a no-op
	d := mapimage.NewDispatcher(mapimage.Config{MapsDir: t.TempDir()}, testutil.TestLogger(), nil)
	s = New(db, d, testutil.TestLogger())
	if err := s.reconcileMapImages(); err != nil {
		t.Fatalf("reconcileMapImages: %v", err)
	}
}

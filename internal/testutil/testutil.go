// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the CafeHub project.
package testutil

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"cafehub/internal/auth"
	"cafehub/internal/store"
)

// TestLogger creates a silent test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestDB creates a temporary test database with migrations and city seed data
// applied. Returns the database and a cleanup function that should be deferred.
func TestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "cafehub-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		_ = os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}

	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		_ = os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	if err := store.SeedCities(context.Background(), db); err != nil {
		_ = db.Close()
		_ = os.Remove(dbPath)
		t.Fatalf("SeedCities: %v", err)
	}

	return db, func() {
		_ = db.Close()
		_ = os.Remove(dbPath)
	}
}

// UserSpec describes a user to create with CreateUser.
type UserSpec struct {
	Username string
	Email    string
	Password string
	Admin    bool
}

// CreateUser inserts a user with a real password hash and returns the row.
func CreateUser(t *testing.T, db *sql.DB, spec UserSpec) store.User {
	t.Helper()

	if spec.Username == "" {
		spec.Username = "testuser"
	}
	if spec.Email == "" {
		spec.Email = spec.Username + "@example.com"
	}
	if spec.Password == "" {
		spec.Password = "test-password"
	}

	hash, err := auth.HashPassword(spec.Password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	now := time.Now()
	user, err := store.New(db).CreateUser(context.Background(), store.CreateUserParams{
		Username:     spec.Username,
		Email:        spec.Email,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: hash,
		Admin:        spec.Admin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

// CreateCafe inserts a cafe in the given seeded city and returns the row.
func CreateCafe(t *testing.T, db *sql.DB, name, cityCode string) store.CafeWithCity {
	t.Helper()

	if cityCode == "" {
		cityCode = "sf"
	}

	now := time.Now()
	cafe, err := store.New(db).CreateCafe(context.Background(), store.CreateCafeParams{
		Name:      name,
		Address:   "500 Test St",
		CityCode:  cityCode,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCafe: %v", err)
	}
	return cafe
}

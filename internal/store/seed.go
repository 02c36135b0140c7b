// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"cafehub/internal/auth"
	"cafehub/internal/util"
)

// Default admin credentials for demo seeding.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "changeme"
)

// seedCity describes one row of the city reference dataset. A missing code is
// derived from the name.
type seedCity struct {
	Code  string
	Name  string
	State string
}

// cityDataset is the immutable city reference data loaded at startup.
var cityDataset = []seedCity{
	{Code: "sf", Name: "San Francisco", State: "CA"},
	{Code: "berk", Name: "Berkeley", State: "CA"},
	{Code: "oak", Name: "Oakland", State: "CA"},
	{Name: "San Jose", State: "CA"},
	{Name: "Sacramento", State: "CA"},
	{Name: "Portland", State: "OR"},
	{Name: "Seattle", State: "WA"},
}

// SeedCities ensures the city reference data exists. Cities are immutable;
// existing codes are never modified.
func SeedCities(ctx context.Context, db *sql.DB) error {
	queries := New(db)

	for _, c := range cityDataset {
		code := c.Code
		if code == "" {
			code = util.Slugify(c.Name)
		}
		if err := queries.CreateCity(ctx, CreateCityParams{
			Code:  code,
			Name:  c.Name,
			State: c.State,
		}); err != nil {
			return fmt.Errorf("seeding city %q: %w", c.Name, err)
		}
	}

	count, err := queries.CountCities(ctx)
	if err != nil {
		return err
	}
	slog.Info("city reference data ready", "count", count)
	return nil
}

// Seed creates a default admin user if no users exist yet.
func Seed(ctx context.Context, db *sql.DB) error {
	queries := New(db)

	// Check if admin user already exists
	_, err := queries.GetUserByUsername(ctx, DefaultAdminUsername)
	if err == nil {
		slog.Info("admin user already exists, skipping seed")
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("checking for admin user: %w", err)
	}

	// Hash the default password
	passwordHash, err := auth.HashPassword(DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	// Create admin user
	now := time.Now()
	user, err := queries.CreateUser(ctx, CreateUserParams{
		Username:     DefaultAdminUsername,
		Email:        DefaultAdminEmail,
		FirstName:    "Site",
		LastName:     "Administrator",
		PasswordHash: passwordHash,
		Admin:        true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	slog.Info("created default admin user",
		"id", user.ID,
		"username", user.Username,
		"password", DefaultAdminPassword,
	)

	return nil
}

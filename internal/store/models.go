// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store provides the persistence layer: database setup, embedded
// migrations, and repository-style queries for users, cities, cafes, likes,
// and audit events.
package store

import (
	"database/sql"
	"time"
)

// Default placeholder asset paths used when no image URL is supplied.
const (
	DefaultCafeImageURL    = "/static/images/default-cafe.png"
	DefaultProfileImageURL = "/static/images/default-pic.png"
)

// Event levels.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories.
const (
	EventCategoryAuth   = "auth"
	EventCategoryCafe   = "cafe"
	EventCategoryUser   = "user"
	EventCategorySystem = "system"
	EventCategoryMaps   = "maps"
)

// City is immutable reference data for cafe locations.
type City struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	State string `json:"state"` // Two-letter state abbreviation
}

// User represents a registered user.
type User struct {
	ID           int64        `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	FirstName    string       `json:"first_name"`
	LastName     string       `json:"last_name"`
	Description  string       `json:"description"`
	ImageURL     string       `json:"image_url"`
	PasswordHash string       `json:"-"` // Never expose in JSON
	Admin        bool         `json:"admin"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	LastLoginAt  sql.NullTime `json:"last_login_at,omitempty"`
}

// FullName returns the user's full name.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Cafe represents a cafe directory entry.
type Cafe struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Address     string    `json:"address"`
	CityCode    string    `json:"city_code"`
	ImageURL    string    `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CafeWithCity is a cafe row joined with its city.
type CafeWithCity struct {
	Cafe
	CityName  string `json:"city_name"`
	CityState string `json:"city_state"`
}

// Location returns "city, state" for display.
func (c CafeWithCity) Location() string {
	return c.CityName + ", " + c.CityState
}

// Like records that a user has bookmarked a cafe.
type Like struct {
	UserID    int64     `json:"user_id"`
	CafeID    int64     `json:"cafe_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is an audit log entry.
type Event struct {
	ID        int64         `json:"id"`
	Level     string        `json:"level"`
	Category  string        `json:"category"`
	Message   string        `json:"message"`
	UserID    sql.NullInt64 `json:"user_id,omitempty"`
	IPAddress string        `json:"ip_address"`
	Metadata  string        `json:"metadata"`
	CreatedAt time.Time     `json:"created_at"`
}

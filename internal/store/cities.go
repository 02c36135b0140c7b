// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
)

// ListCities returns all cities ordered by name.
func (q *Queries) ListCities(ctx context.Context) ([]City, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT code, name, state FROM cities ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("listing cities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cities []City
	for rows.Next() {
		var c City
		if err := rows.Scan(&c.Code, &c.Name, &c.State); err != nil {
			return nil, fmt.Errorf("scanning city: %w", err)
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}

// GetCity returns a city by its natural key.
func (q *Queries) GetCity(ctx context.Context, code string) (City, error) {
	var c City
	err := q.db.QueryRowContext(ctx,
		`SELECT code, name, state FROM cities WHERE code = ?`, code).
		Scan(&c.Code, &c.Name, &c.State)
	return c, err
}

// CreateCityParams holds the fields for CreateCity.
type CreateCityParams struct {
	Code  string
	Name  string
	State string
}

// CreateCity inserts a city. Existing codes are left untouched; cities are
// immutable reference data once seeded.
func (q *Queries) CreateCity(ctx context.Context, arg CreateCityParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO cities (code, name, state) VALUES (?, ?, ?)
		 ON CONFLICT (code) DO NOTHING`,
		arg.Code, arg.Name, arg.State)
	if err != nil {
		return fmt.Errorf("creating city: %w", err)
	}
	return nil
}

// CountCities returns the total number of cities.
func (q *Queries) CountCities(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cities`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting cities: %w", err)
	}
	return count, nil
}

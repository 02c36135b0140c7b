// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const cafeColumns = `c.id, c.name, c.description, c.url, c.address, c.city_code,
	c.image_url, c.created_at, c.updated_at`

func scanCafeWithCity(scan func(dest ...any) error) (CafeWithCity, error) {
	var c CafeWithCity
	err := scan(
		&c.ID, &c.Name, &c.Description, &c.URL, &c.Address, &c.CityCode,
		&c.ImageURL, &c.CreatedAt, &c.UpdatedAt, &c.CityName, &c.CityState,
	)
	return c, err
}

// CreateCafeParams holds the fields for CreateCafe.
type CreateCafeParams struct {
	Name        string
	Description string
	URL         string
	Address     string
	CityCode    string
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateCafe inserts a new cafe and returns the stored row joined with its
// city. The city_code must reference an existing city; a missing city
// surfaces as a foreign-key constraint error.
func (q *Queries) CreateCafe(ctx context.Context, arg CreateCafeParams) (CafeWithCity, error) {
	if arg.ImageURL == "" {
		arg.ImageURL = DefaultCafeImageURL
	}

	res, err := q.db.ExecContext(ctx, `
		INSERT INTO cafes (name, description, url, address, city_code, image_url,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Name, arg.Description, arg.URL, arg.Address, arg.CityCode,
		arg.ImageURL, arg.CreatedAt, arg.UpdatedAt,
	)
	if err != nil {
		return CafeWithCity{}, fmt.Errorf("creating cafe: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return CafeWithCity{}, fmt.Errorf("getting last insert id: %w", err)
	}

	return q.GetCafe(ctx, id)
}

// GetCafe returns a cafe by id joined with its city.
func (q *Queries) GetCafe(ctx context.Context, id int64) (CafeWithCity, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+cafeColumns+`, ci.name, ci.state
		FROM cafes c
		JOIN cities ci ON ci.code = c.city_code
		WHERE c.id = ?`, id)
	return scanCafeWithCity(row.Scan)
}

// ListCafes returns all cafes ordered by name, each joined with its city.
func (q *Queries) ListCafes(ctx context.Context) ([]CafeWithCity, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+cafeColumns+`, ci.name, ci.state
		FROM cafes c
		JOIN cities ci ON ci.code = c.city_code
		ORDER BY c.name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("listing cafes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cafes []CafeWithCity
	for rows.Next() {
		c, err := scanCafeWithCity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning cafe: %w", err)
		}
		cafes = append(cafes, c)
	}
	return cafes, rows.Err()
}

// ListCafeIDs returns the ids of all cafes. Used by the map reconcile job.
func (q *Queries) ListCafeIDs(ctx context.Context) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id FROM cafes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing cafe ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning cafe id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateCafeParams holds the fields for UpdateCafe.
type UpdateCafeParams struct {
	Name        string
	Description string
	URL         string
	Address     string
	CityCode    string
	ImageURL    string
	UpdatedAt   time.Time
	ID          int64
}

// UpdateCafe updates a cafe. An empty ImageURL reverts to the default asset.
func (q *Queries) UpdateCafe(ctx context.Context, arg UpdateCafeParams) error {
	if arg.ImageURL == "" {
		arg.ImageURL = DefaultCafeImageURL
	}

	res, err := q.db.ExecContext(ctx, `
		UPDATE cafes
		SET name = ?, description = ?, url = ?, address = ?, city_code = ?,
			image_url = ?, updated_at = ?
		WHERE id = ?`,
		arg.Name, arg.Description, arg.URL, arg.Address, arg.CityCode,
		arg.ImageURL, arg.UpdatedAt, arg.ID,
	)
	if err != nil {
		return fmt.Errorf("updating cafe: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteCafe removes a cafe. Likes cascade at the schema level.
func (q *Queries) DeleteCafe(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM cafes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting cafe: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountCafes returns the total number of cafes.
func (q *Queries) CountCafes(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cafes`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting cafes: %w", err)
	}
	return count, nil
}

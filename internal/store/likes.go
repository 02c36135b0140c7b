// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LikeParams identifies a (user, cafe) like pair.
type LikeParams struct {
	UserID int64
	CafeID int64
}

// CreateLike inserts a like row. Returns ErrDuplicateLike when the pair
// already exists; liking twice must fail rather than silently succeed.
func (q *Queries) CreateLike(ctx context.Context, arg LikeParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO likes (user_id, cafe_id, created_at) VALUES (?, ?, ?)`,
		arg.UserID, arg.CafeID, time.Now())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateLike
		}
		return fmt.Errorf("creating like: %w", err)
	}
	return nil
}

// DeleteLike removes a like row by composite key.
// Returns sql.ErrNoRows when the like does not exist.
func (q *Queries) DeleteLike(ctx context.Context, arg LikeParams) error {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM likes WHERE user_id = ? AND cafe_id = ?`,
		arg.UserID, arg.CafeID)
	if err != nil {
		return fmt.Errorf("deleting like: %w", err)
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

// HasLike reports whether the user has liked the cafe.
func (q *Queries) HasLike(ctx context.Context, arg LikeParams) (bool, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM likes WHERE user_id = ? AND cafe_id = ?`,
		arg.UserID, arg.CafeID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking like: %w", err)
	}
	return count > 0, nil
}

// CountLikesForCafe returns the number of users who like the cafe.
func (q *Queries) CountLikesForCafe(ctx context.Context, cafeID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM likes WHERE cafe_id = ?`, cafeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting likes: %w", err)
	}
	return count, nil
}

// ListLikedCafes returns the cafes a user has liked, ordered by name.
func (q *Queries) ListLikedCafes(ctx context.Context, userID int64) ([]CafeWithCity, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+cafeColumns+`, ci.name, ci.state
		FROM likes l
		JOIN cafes c ON c.id = l.cafe_id
		JOIN cities ci ON ci.code = c.city_code
		WHERE l.user_id = ?
		ORDER BY c.name COLLATE NOCASE`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing liked cafes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cafes []CafeWithCity
	for rows.Next() {
		c, err := scanCafeWithCity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning liked cafe: %w", err)
		}
		cafes = append(cafes, c)
	}
	return cafes, rows.Err()
}

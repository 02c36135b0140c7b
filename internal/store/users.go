// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const userColumns = `id, username, email, first_name, last_name, description,
	image_url, password_hash, admin, created_at, updated_at, last_login_at`

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.Description, &u.ImageURL, &u.PasswordHash, &u.Admin,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt,
	)
	return u, err
}

// CreateUserParams holds the fields for CreateUser.
type CreateUserParams struct {
	Username     string
	Email        string
	FirstName    string
	LastName     string
	Description  string
	ImageURL     string
	PasswordHash string
	Admin        bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUser inserts a new user and returns the stored row.
// Returns ErrUsernameTaken if the username is already in use.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	if arg.ImageURL == "" {
		arg.ImageURL = DefaultProfileImageURL
	}

	res, err := q.db.ExecContext(ctx, `
		INSERT INTO users (username, email, first_name, last_name, description,
			image_url, password_hash, admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Username, arg.Email, arg.FirstName, arg.LastName, arg.Description,
		arg.ImageURL, arg.PasswordHash, arg.Admin, arg.CreatedAt, arg.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrUsernameTaken
		}
		return User{}, fmt.Errorf("creating user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return User{}, fmt.Errorf("getting last insert id: %w", err)
	}

	return q.GetUserByID(ctx, id)
}

// GetUserByID returns a user by primary key.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByUsername returns a user by unique username.
func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// UpdateUserProfileParams holds the editable profile fields.
type UpdateUserProfileParams struct {
	Email       string
	FirstName   string
	LastName    string
	Description string
	ImageURL    string
	UpdatedAt   time.Time
	ID          int64
}

// UpdateUserProfile updates the editable profile fields of a user.
func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) error {
	if arg.ImageURL == "" {
		arg.ImageURL = DefaultProfileImageURL
	}

	res, err := q.db.ExecContext(ctx, `
		UPDATE users
		SET email = ?, first_name = ?, last_name = ?, description = ?,
			image_url = ?, updated_at = ?
		WHERE id = ?`,
		arg.Email, arg.FirstName, arg.LastName, arg.Description,
		arg.ImageURL, arg.UpdatedAt, arg.ID,
	)
	if err != nil {
		return fmt.Errorf("updating user profile: %w", err)
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

// UpdateUserPasswordParams holds the fields for UpdateUserPassword.
type UpdateUserPasswordParams struct {
	PasswordHash string
	UpdatedAt    time.Time
	ID           int64
}

// UpdateUserPassword replaces a user's password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		arg.PasswordHash, arg.UpdatedAt, arg.ID)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

// UpdateUserLastLoginParams holds the fields for UpdateUserLastLogin.
type UpdateUserLastLoginParams struct {
	LastLoginAt sql.NullTime
	ID          int64
}

// UpdateUserLastLogin records a successful login timestamp.
func (q *Queries) UpdateUserLastLogin(ctx context.Context, arg UpdateUserLastLoginParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = ? WHERE id = ?`,
		arg.LastLoginAt, arg.ID)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return nil
}

// CountUsers returns the total number of users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

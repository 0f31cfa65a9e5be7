// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Account is one operator login record.
type Account struct {
	Username       string
	PasswordHash   string
	TOTPSecret     string
	FailedAttempts int
	LockedUntil    time.Time
	CreatedAt      time.Time
}

// CreateAccount inserts a new operator account.
func (s *Store) CreateAccount(ctx context.Context, a Account) error {
	if s.closed {
		return ErrClosed
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (username, password_hash, totp_secret, failed_attempts, locked_until, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.Username, a.PasswordHash, a.TOTPSecret, a.FailedAttempts, nullTime(a.LockedUntil), a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// GetAccount fetches an account by username.
func (s *Store) GetAccount(ctx context.Context, username string) (Account, error) {
	if s.closed {
		return Account{}, ErrClosed
	}

	var (
		a      Account
		locked sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password_hash, totp_secret, failed_attempts, locked_until, created_at
		FROM accounts WHERE username = ?`, username).
		Scan(&a.Username, &a.PasswordHash, &a.TOTPSecret, &a.FailedAttempts, &locked, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, fmt.Errorf("account %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return Account{}, fmt.Errorf("get account: %w", err)
	}
	if locked.Valid {
		a.LockedUntil = locked.Time
	}
	return a, nil
}

// UpdateAccount rewrites an account's mutable fields.
func (s *Store) UpdateAccount(ctx context.Context, a Account) error {
	if s.closed {
		return ErrClosed
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET password_hash = ?, totp_secret = ?, failed_attempts = ?, locked_until = ?
		WHERE username = ?`,
		a.PasswordHash, a.TOTPSecret, a.FailedAttempts, nullTime(a.LockedUntil), a.Username)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("account %s: %w", a.Username, ErrNotFound)
	}
	return nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

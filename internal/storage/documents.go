// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docenty/hunmin/internal/document"
	"github.com/docenty/hunmin/internal/security"
)

// DocumentMeta is the listing shape for stored documents.
type DocumentMeta struct {
	ID            string
	Title         string
	SecurityLevel security.Level
	UpdatedAt     time.Time
}

// SaveDocument persists the buffer, assigning an ID on first save, and marks
// the buffer clean.
func (s *Store) SaveDocument(ctx context.Context, buf *document.Buffer) error {
	if s.closed {
		return ErrClosed
	}
	now := time.Now().UTC()

	if buf.ID == "" {
		buf.ID = uuid.NewString()
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO documents (id, title, content, security_level, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			buf.ID, buf.Title, buf.Content, buf.SecurityLevel.String(), now, now)
		if err != nil {
			buf.ID = ""
			return fmt.Errorf("insert document: %w", err)
		}
	} else {
		res, err := s.db.ExecContext(ctx, `
			UPDATE documents SET title = ?, content = ?, security_level = ?, updated_at = ?
			WHERE id = ?`,
			buf.Title, buf.Content, buf.SecurityLevel.String(), now, buf.ID)
		if err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("document %s: %w", buf.ID, ErrNotFound)
		}
	}

	buf.MarkSaved(now)
	return nil
}

// LoadDocument fetches a stored document into a fresh buffer.
func (s *Store) LoadDocument(ctx context.Context, id string) (*document.Buffer, error) {
	if s.closed {
		return nil, ErrClosed
	}

	var (
		buf     document.Buffer
		levelID string
		updated time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, security_level, updated_at
		FROM documents WHERE id = ?`, id).
		Scan(&buf.ID, &buf.Title, &buf.Content, &levelID, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	level, err := security.ParseLevel(levelID)
	if err != nil {
		level = security.LevelNormal
	}
	buf.SecurityLevel = level
	buf.MarkSaved(updated)
	return &buf, nil
}

// ListDocuments returns document metadata, most recently updated first.
func (s *Store) ListDocuments(ctx context.Context) ([]DocumentMeta, error) {
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, security_level, updated_at
		FROM documents ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var metas []DocumentMeta
	for rows.Next() {
		var (
			meta    DocumentMeta
			levelID string
		)
		if err := rows.Scan(&meta.ID, &meta.Title, &levelID, &meta.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		level, err := security.ParseLevel(levelID)
		if err != nil {
			level = security.LevelNormal
		}
		meta.SecurityLevel = level
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// DeleteDocument removes a document and its validation history.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	if s.closed {
		return ErrClosed
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

// =============================================================================
// VALIDATION HISTORY
// =============================================================================

// ValidationRecord is one remembered validation pass over a document.
type ValidationRecord struct {
	IsValid   bool
	Score     float64
	Issues    int
	CheckedAt time.Time
}

// RecordValidation appends a validation outcome for a saved document.
func (s *Store) RecordValidation(ctx context.Context, documentID string, rec ValidationRecord) error {
	if s.closed {
		return ErrClosed
	}
	if rec.CheckedAt.IsZero() {
		rec.CheckedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO validation_history (document_id, is_valid, score, issues, checked_at)
		VALUES (?, ?, ?, ?, ?)`,
		documentID, rec.IsValid, rec.Score, rec.Issues, rec.CheckedAt)
	if err != nil {
		return fmt.Errorf("record validation: %w", err)
	}
	return nil
}

// ValidationHistory returns a document's validation passes, newest first,
// capped at limit (0 = no cap).
func (s *Store) ValidationHistory(ctx context.Context, documentID string, limit int) ([]ValidationRecord, error) {
	if s.closed {
		return nil, ErrClosed
	}

	query := `
		SELECT is_valid, score, issues, checked_at
		FROM validation_history WHERE document_id = ?
		ORDER BY checked_at DESC`
	args := []any{documentID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("validation history: %w", err)
	}
	defer rows.Close()

	var recs []ValidationRecord
	for rows.Next() {
		var rec ValidationRecord
		if err := rows.Scan(&rec.IsValid, &rec.Score, &rec.Issues, &rec.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan validation record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

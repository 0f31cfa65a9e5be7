// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/docenty/hunmin/internal/security"
)

// Categories lists the knowledge library categories.
var Categories = []string{
	"작전계획",
	"훈련보고서",
	"일일결산",
	"부대현황",
	"지침서",
	"교범",
}

// KnowledgeEntry is one reference document in the knowledge library.
type KnowledgeEntry struct {
	ID            string
	Title         string
	Content       string
	Category      string
	SecurityLevel security.Level
	Tags          []string
}

// sampleEntries is the seed content for a fresh knowledge library.
var sampleEntries = []KnowledgeEntry{
	{ID: "1", Title: "23-1 작전계획", Content: "작전계획 내용", Category: "작전계획",
		SecurityLevel: security.LevelConfidential, Tags: []string{"작전", "계획"}},
	{ID: "2", Title: "23-2 작전계획", Content: "작전계획 내용", Category: "작전계획",
		SecurityLevel: security.LevelSecretII, Tags: []string{"작전", "계획", "기밀"}},
	{ID: "3", Title: "기본 훈련보고서", Content: "훈련보고서 내용", Category: "훈련보고서",
		SecurityLevel: security.LevelNormal, Tags: []string{"훈련", "보고서"}},
	{ID: "4", Title: "합동훈련 보고서", Content: "합동훈련 보고서 내용", Category: "훈련보고서",
		SecurityLevel: security.LevelConfidential, Tags: []string{"훈련", "보고서", "합동"}},
	{ID: "5", Title: "일일결산보고", Content: "일일결산보고 내용", Category: "일일결산",
		SecurityLevel: security.LevelNormal, Tags: []string{"결산", "일일", "보고"}},
	{ID: "6", Title: "부대 현황", Content: "부대 현황 문서 내용", Category: "부대현황",
		SecurityLevel: security.LevelSecretI, Tags: []string{"부대", "현황", "기밀"}},
	{ID: "7", Title: "장비 정비 지침서", Content: "장비 정비 관련 지침", Category: "지침서",
		SecurityLevel: security.LevelNormal, Tags: []string{"정비", "장비", "지침"}},
	{ID: "8", Title: "통신 교범", Content: "통신 장비 운용 교범", Category: "교범",
		SecurityLevel: security.LevelConfidential, Tags: []string{"통신", "교범", "운용"}},
}

// SeedKnowledge inserts the sample library into an empty knowledge table.
// A store that already has entries is left untouched.
func (s *Store) SeedKnowledge(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge`).Scan(&count); err != nil {
		return fmt.Errorf("count knowledge: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, e := range sampleEntries {
		if err := s.PutKnowledge(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// PutKnowledge inserts or replaces a knowledge entry.
func (s *Store) PutKnowledge(ctx context.Context, e KnowledgeEntry) error {
	if s.closed {
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO knowledge (id, title, content, category, security_level, tags)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Content, e.Category, e.SecurityLevel.String(), strings.Join(e.Tags, ","))
	if err != nil {
		return fmt.Errorf("put knowledge: %w", err)
	}
	return nil
}

// GetKnowledge fetches one knowledge entry by ID.
func (s *Store) GetKnowledge(ctx context.Context, id string) (KnowledgeEntry, error) {
	if s.closed {
		return KnowledgeEntry{}, ErrClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, category, security_level, tags
		FROM knowledge WHERE id = ?`, id)
	e, err := scanKnowledge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return KnowledgeEntry{}, fmt.Errorf("knowledge %s: %w", id, ErrNotFound)
	}
	return e, err
}

// ListKnowledge returns the knowledge entries for a category, or all entries
// when category is empty.
func (s *Store) ListKnowledge(ctx context.Context, category string) ([]KnowledgeEntry, error) {
	if s.closed {
		return nil, ErrClosed
	}

	query := `SELECT id, title, content, category, security_level, tags FROM knowledge`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list knowledge: %w", err)
	}
	defer rows.Close()

	var entries []KnowledgeEntry
	for rows.Next() {
		e, err := scanKnowledge(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SearchKnowledge performs a substring match over title, content, and tags.
// This is the local fallback behind the search service; Meilisearch handles
// ranking when it is configured and reachable.
func (s *Store) SearchKnowledge(ctx context.Context, query string) ([]KnowledgeEntry, error) {
	if s.closed {
		return nil, ErrClosed
	}

	pattern := "%" + strings.TrimSpace(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, category, security_level, tags
		FROM knowledge
		WHERE title LIKE ? OR content LIKE ? OR tags LIKE ?
		ORDER BY id`, pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search knowledge: %w", err)
	}
	defer rows.Close()

	var entries []KnowledgeEntry
	for rows.Next() {
		e, err := scanKnowledge(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKnowledge(row rowScanner) (KnowledgeEntry, error) {
	var (
		e       KnowledgeEntry
		levelID string
		tags    string
	)
	if err := row.Scan(&e.ID, &e.Title, &e.Content, &e.Category, &levelID, &tags); err != nil {
		return KnowledgeEntry{}, err
	}
	level, err := security.ParseLevel(levelID)
	if err != nil {
		level = security.LevelNormal
	}
	e.SecurityLevel = level
	if tags != "" {
		e.Tags = strings.Split(tags, ",")
	}
	return e, nil
}

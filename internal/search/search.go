// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package search provides full-text search over the knowledge library.
//
// Meilisearch serves queries when configured and reachable; the local SQLite
// store answers as a fallback so search keeps working in disconnected
// deployments.
package search

import (
	"context"

	"github.com/docenty/hunmin/internal/storage"
)

// Result is a single search hit returned to the caller.
type Result struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Snippet       string `json:"snippet"`
	Category      string `json:"category"`
	SecurityLevel string `json:"security_level"`
}

// Query describes a search request.
type Query struct {
	Text     string
	Category string // empty = all categories
	Limit    int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a knowledge search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push knowledge entries into a search index.
type Indexer interface {
	IndexEntry(e storage.KnowledgeEntry) error
	IndexEntries(entries []storage.KnowledgeEntry) error
	DeleteEntry(id string) error
}

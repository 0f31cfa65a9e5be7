// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"
	"log"

	"github.com/docenty/hunmin/internal/storage"
)

// Service is the facade that tries Meilisearch first and falls back to the
// local store.
type Service struct {
	meili Searcher
	local Searcher
	index Indexer
}

// NewService creates a search service. meili and index may be nil when
// Meilisearch is not configured.
func NewService(meili *Meili, local *Local) *Service {
	s := &Service{local: local}
	if meili != nil {
		s.meili = meili
		s.index = meili
	}
	return s
}

// Search tries Meilisearch if healthy, otherwise falls back to local search.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to local: %v", err)
	}

	results, total, err := s.local.Search(ctx, q)
	if err != nil {
		log.Printf("search: local search error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexEntry pushes a knowledge entry into Meilisearch, fire-and-forget.
func (s *Service) IndexEntry(e storage.KnowledgeEntry) {
	if s.index == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.index.IndexEntry(e); err != nil {
			log.Printf("search: index entry %s: %v", e.ID, err)
		}
	}()
}

// DeleteEntry removes a knowledge entry from Meilisearch, fire-and-forget.
func (s *Service) DeleteEntry(id string) {
	if s.index == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.index.DeleteEntry(id); err != nil {
			log.Printf("search: delete entry %s: %v", id, err)
		}
	}()
}

// Reindex pushes the whole knowledge library into Meilisearch. Called at
// worker startup when Meilisearch is configured and healthy.
func (s *Service) Reindex(ctx context.Context, store *storage.Store) {
	if s.index == nil || !s.meili.Healthy() {
		return
	}
	entries, err := store.ListKnowledge(ctx, "")
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if err := s.index.IndexEntries(entries); err != nil {
		log.Printf("search: reindex failed: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}

// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"

	"github.com/docenty/hunmin/internal/storage"
	"github.com/docenty/hunmin/internal/util"
)

const snippetWidth = 80

// Local answers searches from the SQLite knowledge table. Always available,
// no ranking beyond insertion order.
type Local struct {
	store *storage.Store
}

// NewLocal creates the local fallback searcher.
func NewLocal(store *storage.Store) *Local {
	return &Local{store: store}
}

// Healthy always reports true; the local store has no remote dependency.
func (l *Local) Healthy() bool { return true }

// Search runs a substring match over the knowledge table.
func (l *Local) Search(ctx context.Context, q Query) ([]Result, int, error) {
	entries, err := l.store.SearchKnowledge(ctx, q.Text)
	if err != nil {
		return nil, 0, err
	}

	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		if q.Category != "" && e.Category != q.Category {
			continue
		}
		results = append(results, Result{
			ID:            e.ID,
			Title:         e.Title,
			Snippet:       util.TruncateWidth(e.Content, snippetWidth),
			Category:      e.Category,
			SecurityLevel: e.SecurityLevel.String(),
		})
	}

	total := len(results)
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, total, nil
}

// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"

	"github.com/docenty/hunmin/internal/storage"
)

const healthInterval = 10 * time.Second

// knowledgeDoc is the shape pushed into the Meilisearch index.
type knowledgeDoc struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	Category      string `json:"category"`
	SecurityLevel string `json:"security_level"`
	Tags          string `json:"tags"`
}

// Meili implements Searcher and Indexer via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	index   string
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the knowledge index.
// An unreachable server is tolerated; the health loop keeps probing and the
// service falls back to local search meanwhile.
func NewMeili(url, apiKey, indexName string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		index:  indexName,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        m.index,
		PrimaryKey: "id",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", m.index, err)
	}

	index := m.client.Index(m.index)
	filterable := []interface{}{"category", "security_level"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs for %s: %v", m.index, err)
	}
	searchable := []string{"title", "content", "tags"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", m.index, err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the knowledge index.
func (m *Meili) Search(_ context.Context, q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	sr := &meili.SearchRequest{
		Limit:                 limit,
		AttributesToHighlight: []string{"*"},
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	}
	if q.Category != "" {
		sr.Filter = fmt.Sprintf("category = %q", q.Category)
	}

	resp, err := m.client.Index(m.index).Search(q.Text, sr)
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, hitToResult(hit))
	}
	return results, int(resp.EstimatedTotalHits), nil
}

func hitToResult(hit meili.Hit) Result {
	r := Result{
		ID:            decodeString(hit, "id"),
		Category:      decodeString(hit, "category"),
		SecurityLevel: decodeString(hit, "security_level"),
	}
	r.Title = firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title"))
	r.Snippet = firstNonBlank(decodeFormattedString(hit, "content"), decodeString(hit, "content"))
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]string
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	return strings.TrimSpace(formatted[key])
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IndexEntry adds or updates one knowledge entry in the index.
func (m *Meili) IndexEntry(e storage.KnowledgeEntry) error {
	_, err := m.client.Index(m.index).AddDocuments([]knowledgeDoc{toDoc(e)}, nil)
	return err
}

// IndexEntries bulk-indexes knowledge entries.
func (m *Meili) IndexEntries(entries []storage.KnowledgeEntry) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]knowledgeDoc, len(entries))
	for i, e := range entries {
		docs[i] = toDoc(e)
	}
	_, err := m.client.Index(m.index).AddDocuments(docs, nil)
	return err
}

// DeleteEntry removes a knowledge entry from the index.
func (m *Meili) DeleteEntry(id string) error {
	_, err := m.client.Index(m.index).DeleteDocument(id, nil)
	return err
}

func toDoc(e storage.KnowledgeEntry) knowledgeDoc {
	return knowledgeDoc{
		ID:            e.ID,
		Title:         e.Title,
		Content:       e.Content,
		Category:      e.Category,
		SecurityLevel: e.SecurityLevel.String(),
		Tags:          strings.Join(e.Tags, " "),
	}
}

// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/docenty/hunmin/internal/storage"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter renders documents as JSON. JSON exports always include the
// complete document regardless of options, so the output can be re-imported.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

type jsonDocument struct {
	ID             string                     `json:"id,omitempty"`
	Title          string                     `json:"title"`
	Classification string                     `json:"classification"`
	Content        string                     `json:"content"`
	SavedAt        string                     `json:"saved_at,omitempty"`
	ExportedAt     string                     `json:"exported_at"`
	History        []storage.ValidationRecord `json:"validation_history,omitempty"`
}

// Export renders the document as JSON.
func (e *JSONExporter) Export(doc *Document) ([]byte, error) {
	if doc == nil || doc.Buffer == nil {
		return nil, fmt.Errorf("document is nil")
	}

	buf := doc.Buffer
	out := jsonDocument{
		ID:             buf.ID,
		Title:          buf.Title,
		Classification: buf.SecurityLevel.Marking(),
		Content:        buf.Content,
		ExportedAt:     time.Now().Format(time.RFC3339),
		History:        doc.History,
	}
	if !buf.LastSaved().IsZero() {
		out.SavedAt = buf.LastSaved().Format(time.RFC3339)
	}
	return json.MarshalIndent(out, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}

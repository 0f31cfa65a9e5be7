// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
)

// =============================================================================
// TEXT EXPORTER
// =============================================================================

// TextExporter renders documents as plain text for printing and transfer to
// systems that accept nothing richer.
type TextExporter struct {
	options *Options
}

// NewTextExporter creates a new plain-text exporter.
func NewTextExporter(opts *Options) *TextExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &TextExporter{options: opts}
}

// Export renders the document as plain text.
func (e *TextExporter) Export(doc *Document) ([]byte, error) {
	if doc == nil || doc.Buffer == nil {
		return nil, fmt.Errorf("document is nil")
	}

	buf := doc.Buffer
	marking := buf.SecurityLevel.Marking()

	var sb strings.Builder
	sb.WriteString(classificationLine(marking, e.options.BannerWidth))
	sb.WriteString("\n\n")
	sb.WriteString(buf.Title)
	sb.WriteString("\n\n")
	sb.WriteString(buf.Content)
	if !strings.HasSuffix(buf.Content, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(classificationLine(marking, e.options.BannerWidth))
	sb.WriteString("\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for plain text.
func (e *TextExporter) FileExtension() string {
	return ".txt"
}

// MimeType returns the MIME type for plain text.
func (e *TextExporter) MimeType() string {
	return "text/plain"
}

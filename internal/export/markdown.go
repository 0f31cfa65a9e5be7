// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter renders documents as Markdown with YAML frontmatter.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export renders the document as Markdown.
func (e *MarkdownExporter) Export(doc *Document) ([]byte, error) {
	if doc == nil || doc.Buffer == nil {
		return nil, fmt.Errorf("document is nil")
	}

	buf := doc.Buffer
	marking := buf.SecurityLevel.Marking()

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(buf.Title)))
		sb.WriteString(fmt.Sprintf("classification: %s\n", marking))
		if buf.ID != "" {
			sb.WriteString(fmt.Sprintf("id: %s\n", buf.ID))
		}
		if !buf.LastSaved().IsZero() {
			sb.WriteString(fmt.Sprintf("saved: %s\n", buf.LastSaved().Format(time.RFC3339)))
		}
		sb.WriteString(fmt.Sprintf("exported: %s\n", time.Now().Format(time.RFC3339)))
		sb.WriteString("generator: hunmin\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString(classificationLine(marking, e.options.BannerWidth))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("# %s\n\n", buf.Title))
	sb.WriteString(buf.Content)
	if !strings.HasSuffix(buf.Content, "\n") {
		sb.WriteString("\n")
	}

	if e.options.IncludeMetadata && len(doc.History) > 0 {
		sb.WriteString("\n## 검증 이력\n\n")
		sb.WriteString("| 일시 | 점수 | 이슈 | 결과 |\n")
		sb.WriteString("|---|---|---|---|\n")
		for _, rec := range doc.History {
			verdict := "통과"
			if !rec.IsValid {
				verdict = "실패"
			}
			sb.WriteString(fmt.Sprintf("| %s | %.0f/100 | %d | %s |\n",
				formatTimestamp(rec.CheckedAt), rec.Score, rec.Issues, verdict))
		}
	}

	sb.WriteString("\n")
	sb.WriteString(classificationLine(marking, e.options.BannerWidth))
	sb.WriteString("\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// escapeYAML quotes a value when it would break YAML frontmatter.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#[]{}&*!|>'\"%@`") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

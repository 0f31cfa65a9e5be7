// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders stored documents to portable formats. Every format
// carries the document's classification marking and, when available, its
// validation history.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/docenty/hunmin/internal/document"
	"github.com/docenty/hunmin/internal/storage"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Document is one export payload: the document buffer plus its remembered
// validation passes, newest first.
type Document struct {
	Buffer  *document.Buffer
	History []storage.ValidationRecord
}

// Exporter renders a document in one target format.
type Exporter interface {
	// Export renders the document and returns the file content.
	Export(doc *Document) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g. ".md").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// ForFormat returns the exporter for a format name.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "", "md", "markdown":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	case "txt", "text":
		return NewTextExporter(opts), nil
	}
	return nil, fmt.Errorf("unknown export format: %s", format)
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files are written.
	// Default: current working directory.
	OutputDir string

	// IncludeMetadata includes the metadata header (classification,
	// timestamps, validation history).
	IncludeMetadata bool

	// BannerWidth is the character width of the classification banner line.
	BannerWidth int
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		IncludeMetadata: true,
		BannerWidth:     72,
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile renders the document and writes it next to a timestamped
// filename under opts.OutputDir. Returns the output file path.
func ExportToFile(doc *Document, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(doc)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s%s",
		sanitizeFilename(doc.Buffer.Title),
		timestamp,
		exporter.FileExtension(),
	)

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	outputPath := filepath.Join(opts.OutputDir, filename)
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// classificationLine is the plain-text banner carried at the top and bottom
// of every export: the marking centered in a rule of '='.
func classificationLine(marking string, width int) string {
	if width <= 0 {
		width = 72
	}
	label := " " + marking + " "
	if runewidth.StringWidth(label) >= width {
		return label
	}
	pad := width - runewidth.StringWidth(label)
	left := pad / 2
	return strings.Repeat("=", left) + label + strings.Repeat("=", pad-left)
}

// sanitizeFilename strips characters that are unsafe in filenames.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "문서"
	}
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_",
		"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	)
	out := replacer.Replace(name)
	if len([]rune(out)) > 40 {
		out = string([]rune(out)[:40])
	}
	return out
}

func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

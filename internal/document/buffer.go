// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package document holds the client-side document buffer and the applier for
// worker-issued mutation instructions.
package document

import (
	"time"

	"github.com/docenty/hunmin/internal/security"
)

// Buffer is the in-memory working copy of the document being edited. It is
// owned by the UI layer; the applier and local edits are its only writers,
// both on the same event loop, last writer wins.
type Buffer struct {
	ID            string
	Title         string
	Content       string
	SecurityLevel security.Level

	dirty     bool
	lastSaved time.Time
}

// NewBuffer returns an empty, unclassified document buffer.
func NewBuffer() *Buffer {
	return &Buffer{Title: "새 문서", SecurityLevel: security.LevelNormal}
}

// SetContent replaces the buffer text and marks the buffer dirty.
func (b *Buffer) SetContent(content string) {
	b.Content = content
	b.dirty = true
}

// SetTitle sets the document title and marks the buffer dirty.
func (b *Buffer) SetTitle(title string) {
	b.Title = title
	b.dirty = true
}

// SetSecurityLevel sets the classification tag and marks the buffer dirty.
func (b *Buffer) SetSecurityLevel(level security.Level) {
	b.SecurityLevel = level
	b.dirty = true
}

// Dirty reports whether the buffer has unsaved changes.
func (b *Buffer) Dirty() bool {
	return b.dirty
}

// LastSaved returns the time of the last successful save, or the zero time.
func (b *Buffer) LastSaved() time.Time {
	return b.lastSaved
}

// MarkSaved clears the dirty flag and records the save time.
func (b *Buffer) MarkSaved(at time.Time) {
	b.dirty = false
	b.lastSaved = at
}

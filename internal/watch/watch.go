// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package watch observes a document file on disk and reports debounced
// content changes, so an open document can be re-validated as an external
// editor saves it.
package watch

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// DOCUMENT WATCHER
// =============================================================================

const tickInterval = 50 * time.Millisecond

// Watcher watches a single document file. Changes are debounced: the
// callback fires once the file has been quiet for the configured duration,
// with the file's content at that point.
//
// The parent directory is watched rather than the file itself, because
// editors that save atomically replace the file and would silently detach a
// direct watch.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(content string)

	fsw    *fsnotify.Watcher
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending time.Time
}

// New builds a watcher for path. onChange runs on the watcher's goroutine;
// it must not block for long.
func New(path string, debounce time.Duration, onChange func(content string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		onChange: onChange,
		fsw:      fsw,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts observing the file.
func (w *Watcher) Watch() error {
	if err := w.fsw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go w.processEvents()
	go w.processPending()
	return nil
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	return w.fsw.Close()
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			w.pending = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watch: %v", err)
		}
	}
}

func (w *Watcher) processPending() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			w.mu.Lock()
			due := !w.pending.IsZero() && time.Since(w.pending) >= w.debounce
			if due {
				w.pending = time.Time{}
			}
			w.mu.Unlock()
			if !due {
				continue
			}

			content, err := os.ReadFile(w.path)
			if err != nil {
				// The file may be mid-replace; the next event retries.
				log.Printf("watch: read %s: %v", w.path, err)
				continue
			}
			w.onChange(string(content))
		}
	}
}

// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	contents []string
}

func (r *recorder) record(content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contents = append(r.contents, content)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contents)
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.contents) == 0 {
		return ""
	}
	return r.contents[len(r.contents)-1]
}

func newTestWatcher(t *testing.T, rec *recorder) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "보고서.txt")
	require.NoError(t, os.WriteFile(path, []byte("초안"), 0o600))

	w, err := New(path, 30*time.Millisecond, rec.record)
	require.NoError(t, err)
	require.NoError(t, w.Watch())
	t.Cleanup(func() { w.Close() })
	return path
}

func TestWatcherReportsWrite(t *testing.T) {
	rec := &recorder{}
	path := newTestWatcher(t, rec)

	require.NoError(t, os.WriteFile(path, []byte("수정된 본문입니다."), 0o600))

	require.Eventually(t, func() bool { return rec.count() >= 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "수정된 본문입니다.", rec.last())
}

func TestWatcherDebouncesBursts(t *testing.T) {
	rec := &recorder{}
	path := newTestWatcher(t, rec)

	// A burst of rapid saves collapses into one callback with the final
	// content.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("중간 저장"), 0o600))
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, os.WriteFile(path, []byte("최종 본문"), 0o600))

	require.Eventually(t, func() bool { return rec.count() >= 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "최종 본문", rec.last())
	assert.Equal(t, 1, rec.count())
}

func TestWatcherSeesAtomicReplace(t *testing.T) {
	rec := &recorder{}
	path := newTestWatcher(t, rec)

	// Editors that save atomically write a temp file and rename it over
	// the target.
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte("교체된 본문"), 0o600))
	require.NoError(t, os.Rename(tmp, path))

	require.Eventually(t, func() bool { return rec.count() >= 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "교체된 본문", rec.last())
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	rec := &recorder{}
	path := newTestWatcher(t, rec)

	sibling := filepath.Join(filepath.Dir(path), "다른파일.txt")
	require.NoError(t, os.WriteFile(sibling, []byte("무관한 내용"), 0o600))

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
}

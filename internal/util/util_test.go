// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "doc.txt")

	require.NoError(t, AtomicWriteFile(path, []byte("첫번째 내용"), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "첫번째 내용", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// Overwrite replaces the content wholesale.
	require.NoError(t, AtomicWriteFile(path, []byte("두번째"), 0600))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "두번째", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "짧은 글", TruncateRunes("짧은 글", 10))
	assert.Equal(t, "가나다...", TruncateRunes("가나다라마바사", 6))
	assert.Equal(t, "가나", TruncateRunes("가나다라", 2))
	assert.Equal(t, "", TruncateRunes("가나다", 0))
}

func TestTruncateWidth(t *testing.T) {
	// Hangul syllables are two columns wide.
	assert.Equal(t, 6, StringWidth("가나다"))
	assert.Equal(t, "가나다", TruncateWidth("가나다", 6))
	assert.Equal(t, "가...", TruncateWidth("가나다라", 5))
	assert.Equal(t, "", TruncateWidth("가나다", 0))
}

func TestSafeSubstring(t *testing.T) {
	assert.Equal(t, "나다", SafeSubstring("가나다라", 1, 3))
	assert.Equal(t, "가나다라", SafeSubstring("가나다라", 0, 99))
	assert.Equal(t, "", SafeSubstring("가나다라", 3, 1))
	assert.Equal(t, "", SafeSubstring("가나다라", 9, 12))
}

func TestRuneLen(t *testing.T) {
	assert.Equal(t, 4, RuneLen("가나다라"))
	assert.Equal(t, 0, RuneLen(""))
}

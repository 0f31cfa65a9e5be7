// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docenty/hunmin/internal/protocol"
)

func result(ts string, issues ...protocol.Issue) *protocol.ValidationResult {
	return &protocol.ValidationResult{
		IsValid:         len(issues) == 0,
		Issues:          issues,
		ComplianceScore: 87.3,
		Timestamp:       ts,
	}
}

func issue(severity protocol.Severity, msg string) protocol.Issue {
	return protocol.Issue{Type: "format", Severity: severity, Message: msg}
}

func TestObserveDedupByTimestamp(t *testing.T) {
	var p Projection

	r := result("2025-06-01T10:00:00Z", issue(protocol.SeverityError, "e1"))
	assert.True(t, p.Observe(r))

	// Same timestamp again: no new projection side effect.
	assert.False(t, p.Observe(result("2025-06-01T10:00:00Z")))

	// Different timestamp: projected again, replacing wholesale.
	r2 := result("2025-06-01T10:05:00Z")
	assert.True(t, p.Observe(r2))
	assert.Same(t, r2, p.Last())
	assert.Equal(t, 0, p.Count().Total())
}

func TestObserveNil(t *testing.T) {
	var p Projection
	assert.False(t, p.Observe(nil))
	assert.Nil(t, p.Last())
}

func TestNavigationWraparound(t *testing.T) {
	var p Projection
	p.Observe(result("t",
		issue(protocol.SeverityError, "a"),
		issue(protocol.SeverityWarning, "b"),
		issue(protocol.SeveritySuggestion, "c"),
	))

	_, idx, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	p.Next()
	_, idx, _ = p.Next()
	assert.Equal(t, 2, idx)

	// Index 2, next wraps to 0.
	_, idx, _ = p.Next()
	assert.Equal(t, 0, idx)

	// Index 0, prev wraps to 2.
	_, idx, _ = p.Prev()
	assert.Equal(t, 2, idx)
}

func TestNavigationEmptyIsNoOp(t *testing.T) {
	var p Projection
	p.Observe(result("t"))

	_, _, ok := p.Next()
	assert.False(t, ok)
	_, _, ok = p.Prev()
	assert.False(t, ok)
	_, _, ok = p.Current()
	assert.False(t, ok)
}

func TestNavigationResetsOnNewResult(t *testing.T) {
	var p Projection
	p.Observe(result("t1", issue(protocol.SeverityError, "a"), issue(protocol.SeverityError, "b")))
	p.Next()

	p.Observe(result("t2", issue(protocol.SeverityError, "c"), issue(protocol.SeverityError, "d")))
	_, idx, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestSummarizeCountsAndScore(t *testing.T) {
	r := result("t",
		issue(protocol.SeverityError, "제목 서식이 잘못되었습니다."),
		issue(protocol.SeverityWarning, "보안 표기가 누락되었습니다."),
	)

	summary := Summarize(r)

	assert.Contains(t, summary, "87.3/100")
	assert.Contains(t, summary, "오류: 1")
	assert.Contains(t, summary, "경고: 1")
	assert.NotContains(t, summary, "제안:")

	// Exactly two enumerated issue lines.
	assert.Contains(t, summary, "1. ")
	assert.Contains(t, summary, "2. ")
	assert.NotContains(t, summary, "3. ")
	assert.Contains(t, summary, "발견된 이슈: 2개")
}

func TestSummarizeOverflow(t *testing.T) {
	r := result("t",
		issue(protocol.SeverityError, "a"),
		issue(protocol.SeverityError, "b"),
		issue(protocol.SeverityError, "c"),
		issue(protocol.SeverityError, "d"),
		issue(protocol.SeverityError, "e"),
	)

	summary := Summarize(r)
	assert.Contains(t, summary, "그 외 2개의 이슈가 더 있습니다")

	// Only the first three issues are listed.
	assert.Contains(t, summary, "3. ")
	assert.False(t, strings.Contains(summary, "4. "), "summary listed more than 3 issues:\n%s", summary)
}

func TestSummarizeClean(t *testing.T) {
	r := result("t")
	r.ComplianceScore = 100

	summary := Summarize(r)
	assert.Contains(t, summary, "100/100")
	assert.Contains(t, summary, "🎉 문서에 문제가 없습니다!")
	assert.NotContains(t, summary, "주요 이슈")
}

func TestSummarizeNil(t *testing.T) {
	assert.Equal(t, "", Summarize(nil))
}

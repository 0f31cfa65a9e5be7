// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package validation projects raw validation results into displayable state:
// the retained "last validation", a chat-transcript summary message, and
// sequential navigation over the issue list.
package validation

import (
	"strconv"
	"strings"

	"github.com/docenty/hunmin/internal/protocol"
)

// Severity icons used in summaries and issue lists.
const (
	iconError      = "❌"
	iconWarning    = "⚠️"
	iconSuggestion = "💡"
)

// maxListedIssues caps the issues enumerated in a summary message.
const maxListedIssues = 3

// Counts aggregates issues by severity.
type Counts struct {
	Errors      int
	Warnings    int
	Suggestions int
}

// Total returns the number of issues across all severities.
func (c Counts) Total() int {
	return c.Errors + c.Warnings + c.Suggestions
}

// Projection retains the latest validation result and derives display state
// from it. Exactly one result is current at a time; a newer result with a
// different timestamp replaces the prior one wholesale.
type Projection struct {
	last          *protocol.ValidationResult
	lastTimestamp string
	nav           int
}

// NewProjection returns an empty projection with no result observed.
func NewProjection() *Projection { return &Projection{} }

// Observe records a validation result.
//
// Results are deduplicated by timestamp: observing a result whose timestamp
// equals the last projected one returns changed=false and has no effect, so
// re-checking the same result across render passes produces one summary, not
// many. A new timestamp replaces the retained result and resets navigation.
func (p *Projection) Observe(result *protocol.ValidationResult) (changed bool) {
	if result == nil || result.Timestamp == p.lastTimestamp {
		return false
	}
	p.last = result
	p.lastTimestamp = result.Timestamp
	p.nav = 0
	return true
}

// Last returns the retained validation result, or nil when none has been
// observed yet.
func (p *Projection) Last() *protocol.ValidationResult {
	return p.last
}

// Count aggregates the retained result's issues by severity.
func (p *Projection) Count() Counts {
	if p.last == nil {
		return Counts{}
	}
	return CountIssues(p.last.Issues)
}

// CountIssues aggregates a slice of issues by severity.
func CountIssues(issues []protocol.Issue) Counts {
	var c Counts
	for _, issue := range issues {
		switch issue.Severity {
		case protocol.SeverityError:
			c.Errors++
		case protocol.SeverityWarning:
			c.Warnings++
		case protocol.SeveritySuggestion:
			c.Suggestions++
		}
	}
	return c
}

// =============================================================================
// ISSUE NAVIGATION
// =============================================================================

// Current returns the issue under the navigation cursor. ok is false when the
// retained result has no issues.
func (p *Projection) Current() (issue protocol.Issue, index int, ok bool) {
	if p.last == nil || len(p.last.Issues) == 0 {
		return protocol.Issue{}, 0, false
	}
	return p.last.Issues[p.nav], p.nav, true
}

// Next advances the cursor with wraparound. With no issues it is a no-op.
func (p *Projection) Next() (protocol.Issue, int, bool) {
	if p.last == nil || len(p.last.Issues) == 0 {
		return protocol.Issue{}, 0, false
	}
	p.nav = (p.nav + 1) % len(p.last.Issues)
	return p.last.Issues[p.nav], p.nav, true
}

// Prev retreats the cursor with wraparound. With no issues it is a no-op.
func (p *Projection) Prev() (protocol.Issue, int, bool) {
	if p.last == nil || len(p.last.Issues) == 0 {
		return protocol.Issue{}, 0, false
	}
	if p.nav == 0 {
		p.nav = len(p.last.Issues) - 1
	} else {
		p.nav--
	}
	return p.last.Issues[p.nav], p.nav, true
}

// =============================================================================
// SUMMARY FORMATTING
// =============================================================================

// Summarize renders a validation result as the multi-line Korean summary
// message appended to the chat transcript.
func Summarize(result *protocol.ValidationResult) string {
	if result == nil {
		return ""
	}

	counts := CountIssues(result.Issues)
	total := counts.Total()

	var sb strings.Builder
	sb.WriteString("📋 문서 검증이 완료되었습니다.\n\n")
	sb.WriteString("✅ 전체 점수: " + formatScore(result.ComplianceScore) + "/100\n")
	sb.WriteString("📊 발견된 이슈: " + strconv.Itoa(total) + "개\n")

	if counts.Errors > 0 {
		sb.WriteString("   - " + iconError + " 오류: " + strconv.Itoa(counts.Errors) + "개\n")
	}
	if counts.Warnings > 0 {
		sb.WriteString("   - " + iconWarning + " 경고: " + strconv.Itoa(counts.Warnings) + "개\n")
	}
	if counts.Suggestions > 0 {
		sb.WriteString("   - " + iconSuggestion + " 제안: " + strconv.Itoa(counts.Suggestions) + "개\n")
	}

	if total > 0 {
		sb.WriteString("\n주요 이슈:\n")
		for i, issue := range result.Issues {
			if i == maxListedIssues {
				break
			}
			sb.WriteString(strconv.Itoa(i+1) + ". " + severityIcon(issue.Severity) + " " + issue.Message + "\n")
		}
		if total > maxListedIssues {
			sb.WriteString("\n... 그 외 " + strconv.Itoa(total-maxListedIssues) + "개의 이슈가 더 있습니다.")
		}
	} else {
		sb.WriteString("\n🎉 문서에 문제가 없습니다!")
	}

	return sb.String()
}

// severityIcon returns the icon for a severity; unknown severities fall back
// to the suggestion icon.
func severityIcon(s protocol.Severity) string {
	switch s {
	case protocol.SeverityError:
		return iconError
	case protocol.SeverityWarning:
		return iconWarning
	default:
		return iconSuggestion
	}
}

// formatScore renders a compliance score without trailing zeros, so 87.3
// prints as "87.3" and 100 prints as "100".
func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

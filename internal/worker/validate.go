// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package worker implements the AI worker service: the WebSocket endpoint the
// client channel dials, plus the matching REST surface. Validation and chat
// are rule-based; the rules live in this package so both transports share
// them.
package worker

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/docenty/hunmin/internal/protocol"
	"github.com/docenty/hunmin/internal/security"
	"github.com/docenty/hunmin/internal/util"
)

// =============================================================================
// VALIDATION RULES
// =============================================================================

// totalChecks is the number of compliance checks Evaluate runs. The score is
// the fraction of checks that produced no error or warning.
const totalChecks = 5

const minContentRunes = 10

// Evaluate runs the document validation rules and returns the structured
// result. Content is NFC-normalized before any rule runs so that decomposed
// Hangul input matches the composed keywords the rules look for. All issue
// positions are rune offsets into the normalized content.
func Evaluate(content, securityLevel string, now time.Time) protocol.ValidationResult {
	content = norm.NFC.String(content)

	var issues []protocol.Issue
	var suggestions []string

	// Check 1: minimum length.
	if util.RuneLen(strings.TrimSpace(content)) < minContentRunes {
		issues = append(issues, protocol.Issue{
			Type:     "length",
			Severity: protocol.SeverityError,
			Message:  "문서 내용이 너무 짧습니다.",
			Position: protocol.Span{Start: 0, End: util.RuneLen(content)},
		})
	}

	// Check 2: 기밀 keyword in an unclassified document.
	if idx := runeIndex(content, "기밀"); idx >= 0 && securityLevel == security.MarkingNormal {
		issues = append(issues, protocol.Issue{
			Type:     "security",
			Severity: protocol.SeverityWarning,
			Message:  "기밀 정보가 포함된 것 같습니다. 보안 등급을 확인해주세요.",
			Position: protocol.Span{Start: idx, End: idx + util.RuneLen("기밀")},
		})
	}

	// Check 3: a classification marking above the document's declared level
	// appearing in the body.
	issues = append(issues, markingIssues(content, securityLevel)...)

	// Check 4: paragraph spacing. Too many blank lines relative to line
	// breaks reads poorly; advisory only.
	if float64(strings.Count(content, "\n\n")) > float64(strings.Count(content, "\n"))*0.3 {
		suggestions = append(suggestions, "문단 간격을 조정하여 가독성을 개선할 수 있습니다.")
	}

	// Check 5: sentence punctuation.
	if !strings.ContainsAny(content, ".!?") {
		issues = append(issues, protocol.Issue{
			Type:     "punctuation",
			Severity: protocol.SeveritySuggestion,
			Message:  "문장 부호가 부족합니다.",
			Position: protocol.Span{Start: 0, End: util.RuneLen(content)},
		})
	}

	penalized := 0
	hasError := false
	for _, issue := range issues {
		switch issue.Severity {
		case protocol.SeverityError:
			hasError = true
			penalized++
		case protocol.SeverityWarning:
			penalized++
		}
	}
	if penalized > totalChecks {
		penalized = totalChecks
	}

	return protocol.ValidationResult{
		IsValid:         !hasError,
		Issues:          issues,
		Suggestions:     suggestions,
		ComplianceScore: float64(totalChecks-penalized) / totalChecks * 100,
		Timestamp:       now.UTC().Format(time.RFC3339),
	}
}

// markingIssues flags classification markings in the body that outrank the
// document's declared level. An unparsable declared level flags nothing; the
// config layer rejects unknown levels before they reach the worker.
func markingIssues(content, securityLevel string) []protocol.Issue {
	declared, err := security.ParseLevel(securityLevel)
	if err != nil {
		return nil
	}

	var issues []protocol.Issue
	for _, level := range security.Levels() {
		if declared.Dominates(level) {
			continue
		}
		marking := level.Marking()
		// "I급비밀" is a substring of "II급비밀"; mask the longer marking
		// with a same-rune-length placeholder so offsets stay valid.
		haystack := content
		if marking == security.MarkingSecretI {
			mask := strings.Repeat("□", util.RuneLen(security.MarkingSecretII))
			haystack = strings.ReplaceAll(haystack, security.MarkingSecretII, mask)
		}
		idx := runeIndex(haystack, marking)
		if idx < 0 {
			continue
		}
		issues = append(issues, protocol.Issue{
			Type:     "classification",
			Severity: protocol.SeverityWarning,
			Message:  "본문에 " + marking + " 표기가 있으나 문서 등급은 " + declared.Marking() + "입니다.",
			Position: protocol.Span{Start: idx, End: idx + util.RuneLen(marking)},
		})
	}
	return issues
}

// runeIndex returns the rune offset of the first occurrence of sub in s, or
// -1 when absent.
func runeIndex(s, sub string) int {
	byteIdx := strings.Index(s, sub)
	if byteIdx < 0 {
		return -1
	}
	return util.RuneLen(s[:byteIdx])
}

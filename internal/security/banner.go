// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Classified documents carry their marking centered at the top and bottom of
// every rendered view. The marking text is Korean and therefore double-width
// in terminal cells; centering must use display width, not rune count.

// Banner renders the classification marking for a level as a full-width
// terminal banner line.
func Banner(level Level, width int) string {
	if width <= 0 {
		width = 80
	}

	marking := level.Marking()
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(level.Color()).
		Bold(true)

	return style.Render(center(marking, width))
}

// PortionMark returns the short parenthesized marking used in front of
// paragraph text, e.g. "(II급)" for a SECRET_II portion.
func PortionMark(level Level) string {
	switch level {
	case LevelNormal:
		return "(일반)"
	case LevelConfidential:
		return "(대외비)"
	case LevelSecretII:
		return "(II급)"
	case LevelSecretI:
		return "(I급)"
	default:
		return "(일반)"
	}
}

// center pads s with spaces to the given display width.
func center(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	left := (width - w) / 2
	right := width - w - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}

// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package security models the document classification levels used across
// hunmin: parsing, ordering, Korean markings, and banner rendering.
package security

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ErrUnknownLevel is returned when a string maps to no known level.
var ErrUnknownLevel = errors.New("unknown security level")

// Level is a document classification level, ordered from least to most
// sensitive.
type Level int

const (
	LevelNormal Level = iota
	LevelConfidential
	LevelSecretII
	LevelSecretI
)

// Stable identifiers, used on the wire and in storage.
const (
	IDNormal       = "NORMAL"
	IDConfidential = "CONFIDENTIAL"
	IDSecretII     = "SECRET_II"
	IDSecretI      = "SECRET_I"
)

// Korean markings, shown in banners and sent as analyze security_level.
const (
	MarkingNormal       = "일반"
	MarkingConfidential = "대외비"
	MarkingSecretII     = "II급비밀"
	MarkingSecretI      = "I급비밀"
)

// Levels returns all levels in ascending sensitivity order.
func Levels() []Level {
	return []Level{LevelNormal, LevelConfidential, LevelSecretII, LevelSecretI}
}

// String returns the stable identifier for the level.
func (l Level) String() string {
	switch l {
	case LevelConfidential:
		return IDConfidential
	case LevelSecretII:
		return IDSecretII
	case LevelSecretI:
		return IDSecretI
	default:
		return IDNormal
	}
}

// Marking returns the Korean classification marking.
func (l Level) Marking() string {
	switch l {
	case LevelConfidential:
		return MarkingConfidential
	case LevelSecretII:
		return MarkingSecretII
	case LevelSecretI:
		return MarkingSecretI
	default:
		return MarkingNormal
	}
}

// Color returns the banner background color for the level.
func (l Level) Color() lipgloss.Color {
	switch l {
	case LevelConfidential:
		return lipgloss.Color("#1E40AF") // blue
	case LevelSecretII:
		return lipgloss.Color("#B45309") // amber
	case LevelSecretI:
		return lipgloss.Color("#B91C1C") // red
	default:
		return lipgloss.Color("#166534") // green
	}
}

// Dominates reports whether l is at least as sensitive as other.
func (l Level) Dominates(other Level) bool {
	return l >= other
}

// ParseLevel maps a stable identifier or Korean marking to its level.
// Identifiers are matched case-insensitively with surrounding space ignored.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case IDNormal, MarkingNormal:
		return LevelNormal, nil
	case IDConfidential, MarkingConfidential:
		return LevelConfidential, nil
	case IDSecretII, MarkingSecretII:
		return LevelSecretII, nil
	case IDSecretI, MarkingSecretI:
		return LevelSecretI, nil
	}
	return LevelNormal, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"NORMAL", LevelNormal},
		{"normal", LevelNormal},
		{" CONFIDENTIAL ", LevelConfidential},
		{"SECRET_II", LevelSecretII},
		{"SECRET_I", LevelSecretI},
		{"일반", LevelNormal},
		{"대외비", LevelConfidential},
		{"II급비밀", LevelSecretII},
		{"I급비밀", LevelSecretI},
	}

	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseLevelUnknown(t *testing.T) {
	_, err := ParseLevel("TOP_SECRET")
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestDominates(t *testing.T) {
	assert.True(t, LevelSecretI.Dominates(LevelNormal))
	assert.True(t, LevelSecretII.Dominates(LevelSecretII))
	assert.False(t, LevelConfidential.Dominates(LevelSecretII))
}

func TestMarkingRoundTrip(t *testing.T) {
	for _, l := range Levels() {
		parsed, err := ParseLevel(l.Marking())
		require.NoError(t, err)
		assert.Equal(t, l, parsed)

		parsed, err = ParseLevel(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, parsed)
	}
}

func TestBannerCentering(t *testing.T) {
	// Korean markings are double-width; the banner must center on display
	// width. Strip the ANSI styling by rendering with a known width and
	// checking the padded plain text.
	padded := center(MarkingSecretII, 40)
	assert.Equal(t, 40, runewidth.StringWidth(padded))
	assert.True(t, strings.Contains(padded, MarkingSecretII))

	lead := len(padded) - len(strings.TrimLeft(padded, " "))
	trail := len(padded) - len(strings.TrimRight(padded, " "))
	assert.InDelta(t, lead, trail, 1)
}

func TestPortionMark(t *testing.T) {
	assert.Equal(t, "(I급)", PortionMark(LevelSecretI))
	assert.Equal(t, "(일반)", PortionMark(LevelNormal))
}

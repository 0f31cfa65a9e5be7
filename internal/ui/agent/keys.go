// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent provides the assistant panel: a Bubble Tea program that shows
// connection state, the validation card, and the chat transcript, and sends
// chat and validation requests to the worker.
package agent

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP
// =============================================================================

// KeyMap defines the keyboard bindings for the assistant panel. The input
// field is always focused, so every binding is a control chord.
type KeyMap struct {
	Submit       key.Binding
	Validate     key.Binding
	NextIssue    key.Binding
	PrevIssue    key.Binding
	ToggleSource key.Binding
	Reconnect    key.Binding
	Clear        key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	Quit         key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "전송"),
		),
		Validate: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("C-g", "검증"),
		),
		NextIssue: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "다음 이슈"),
		),
		PrevIssue: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("C-p", "이전 이슈"),
		),
		ToggleSource: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "원문 보기"),
		),
		Reconnect: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "재연결"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "화면 지우기"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "위로"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "아래로"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "종료"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Validate, k.NextIssue, k.ToggleSource, k.Quit}
}

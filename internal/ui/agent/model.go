// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/docenty/hunmin/internal/agent"
	"github.com/docenty/hunmin/internal/channel"
	"github.com/docenty/hunmin/internal/ui/styles"
)

// =============================================================================
// MODEL
// =============================================================================

// Link is the slice of the channel API the panel drives directly. Satisfied
// by *channel.Channel; tests substitute a fake.
type Link interface {
	Status() channel.Status
	Connect() error
	ResetBackoff()
}

// Model is the Bubble Tea model for the assistant panel.
type Model struct {
	theme  *styles.Theme
	keys   KeyMap
	width  int
	height int

	agent *agent.Agent
	link  Link

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	markdown *glamour.TermRenderer

	// pending is true between sending a chat or validation request and the
	// next reply or error event.
	pending bool

	// showSource switches the transcript area to the highlighted document
	// source.
	showSource bool

	statusMsg string
	ready     bool
	quitting  bool
}

// New builds the assistant panel bound to an agent session and its channel.
func New(a *agent.Agent, link Link, theme *styles.Theme) *Model {
	input := textinput.New()
	input.Placeholder = "메시지를 입력하세요... (C-g 검증)"
	input.Prompt = "> "
	input.CharLimit = 4000
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = theme.Spinner

	return &Model{
		theme: theme,
		keys:  DefaultKeyMap(),
		agent: a,
		link:  link,
		input: input,
		spin:  spin,
	}
}

// Init connects the channel and starts the poll loop.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spin.Tick,
		m.connectCmd(),
		tick(),
	)
}

// initMarkdown builds the glamour renderer for the current width. Rendering
// falls back to plain text when the renderer cannot be built.
func (m *Model) initMarkdown(width int) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		m.markdown = nil
		return
	}
	m.markdown = renderer
}

// renderMarkdown renders assistant text as markdown, falling back to the raw
// text on error.
func (m *Model) renderMarkdown(text string) string {
	if m.markdown == nil {
		return text
	}
	out, err := m.markdown.Render(text)
	if err != nil {
		return text
	}
	return out
}

// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/docenty/hunmin/internal/agent"
)

// =============================================================================
// UPDATE
// =============================================================================

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		// Drain synchronously: it never blocks, and running it here keeps
		// all agent mutation on the update loop.
		m.handleEvents(m.agent.Drain())
		return m, tick()

	case sendFailedMsg:
		m.pending = false
		m.statusMsg = "전송 실패: 연결 상태를 확인하세요."
		return m, nil

	case connectFailedMsg:
		m.statusMsg = "연결 실패: " + msg.err.Error()
		return m, nil

	case FileChangedMsg:
		m.agent.Buffer().SetContent(msg.Content)
		m.statusMsg = "파일이 변경되어 재검증합니다."
		m.refreshViewport()
		if m.pending {
			return m, nil
		}
		m.pending = true
		return m, sendCmd(m.agent.Validate())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	contentHeight := msg.Height - m.chromeHeight()
	if contentHeight < 3 {
		contentHeight = 3
	}

	if !m.ready {
		m.viewport = newViewport(msg.Width, contentHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = contentHeight
	}

	m.input.Width = msg.Width - 4
	m.initMarkdown(msg.Width - 6)
	m.refreshViewport()
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.pending {
			return m, nil
		}
		m.input.Reset()
		m.pending = true
		m.statusMsg = ""
		send := m.agent.Ask(text)
		m.refreshViewport()
		return m, sendCmd(send)

	case key.Matches(msg, m.keys.Validate):
		if m.pending {
			return m, nil
		}
		m.pending = true
		m.statusMsg = ""
		return m, sendCmd(m.agent.Validate())

	case key.Matches(msg, m.keys.NextIssue):
		m.agent.Projection().Next()
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.PrevIssue):
		m.agent.Projection().Prev()
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.ToggleSource):
		m.showSource = !m.showSource
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.Reconnect):
		m.link.ResetBackoff()
		m.statusMsg = "재연결 중..."
		return m, m.connectCmd()

	case key.Matches(msg, m.keys.Clear):
		m.statusMsg = ""
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.PageUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.PageDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleEvents(events []agent.Event) {
	if len(events) == 0 {
		return
	}

	for _, ev := range events {
		switch ev.Kind {
		case agent.EventReply, agent.EventValidation:
			m.pending = false
		case agent.EventError:
			m.pending = false
			m.statusMsg = ev.Text
		case agent.EventDocumentChanged:
			m.statusMsg = ev.Text
		}
	}

	m.refreshViewport()
	m.viewport.GotoBottom()
}

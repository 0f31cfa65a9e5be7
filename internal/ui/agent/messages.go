// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// MESSAGES
// =============================================================================

// pollInterval is the cadence at which the panel drains the channel's message
// log and refreshes the connection status.
const pollInterval = 100 * time.Millisecond

// tickMsg triggers a drain of pending worker messages. The drain itself runs
// inside Update: commands run concurrently with the update loop, so agent
// state is only ever touched from Update.
type tickMsg time.Time

// sendFailedMsg reports a chat or validation request that could not be sent.
type sendFailedMsg struct {
	err error
}

// connectFailedMsg reports a failed connect attempt.
type connectFailedMsg struct {
	err error
}

// FileChangedMsg is sent from outside the program (the file watcher) when the
// document file on disk changed. The panel adopts the new content and asks the
// worker to re-validate it.
type FileChangedMsg struct {
	Content string
}

// =============================================================================
// COMMANDS
// =============================================================================

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) connectCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.link.Connect(); err != nil {
			return connectFailedMsg{err: err}
		}
		return nil
	}
}

// sendCmd runs a prepared send step off the event loop. The step carries its
// own snapshot, so the command reads no model or agent state.
func sendCmd(send func() error) tea.Cmd {
	return func() tea.Msg {
		if err := send(); err != nil {
			return sendFailedMsg{err: err}
		}
		return nil
	}
}

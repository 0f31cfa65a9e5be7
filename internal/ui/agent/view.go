// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/docenty/hunmin/internal/agent"
	"github.com/docenty/hunmin/internal/channel"
	"github.com/docenty/hunmin/internal/protocol"
	"github.com/docenty/hunmin/internal/security"
	"github.com/docenty/hunmin/internal/ui/styles"
	"github.com/docenty/hunmin/internal/validation"
)

// =============================================================================
// VIEW
// =============================================================================

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "초기화 중..."
	}

	var sb strings.Builder
	sb.WriteString(security.Banner(m.agent.Buffer().SecurityLevel, m.width))
	sb.WriteString("\n")
	sb.WriteString(m.headerView())
	sb.WriteString("\n")
	sb.WriteString(m.validationCard())
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(m.inputView())
	sb.WriteString("\n")
	sb.WriteString(m.statusBar())
	sb.WriteString("\n")
	sb.WriteString(security.Banner(m.agent.Buffer().SecurityLevel, m.width))
	return sb.String()
}

// chromeHeight is the number of terminal rows used outside the viewport.
func (m *Model) chromeHeight() int {
	// Two banners, header, validation card (3 rows), input, status bar.
	return 2 + 1 + 3 + 1 + 1
}

func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.SetContent("")
	return vp
}

// =============================================================================
// HEADER
// =============================================================================

func (m *Model) headerView() string {
	buf := m.agent.Buffer()
	title := m.theme.HeaderTitle.Render(buf.Title)
	status := m.connectionView()

	dirty := ""
	if buf.Dirty() {
		dirty = m.theme.HeaderSubtitle.Render(" [수정됨]")
	}

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(status) - lipgloss.Width(dirty)
	if gap < 1 {
		gap = 1
	}
	return title + dirty + strings.Repeat(" ", gap) + status
}

func (m *Model) connectionView() string {
	status := m.link.Status()
	indicator, style := connectionIndicator(m.theme, status)
	return style.Render(indicator + " " + status.String())
}

// connectionIndicator maps a channel status to its marker and style.
func connectionIndicator(theme *styles.Theme, status channel.Status) (string, lipgloss.Style) {
	switch status {
	case channel.StatusConnected:
		return styles.IndicatorConnected, theme.StatusConnected
	case channel.StatusConnecting:
		return styles.IndicatorConnecting, theme.StatusConnecting
	default:
		return styles.IndicatorDisconnected, theme.StatusDisconnected
	}
}

// =============================================================================
// VALIDATION CARD
// =============================================================================

func (m *Model) validationCard() string {
	proj := m.agent.Projection()
	result := proj.Last()
	if result == nil {
		return m.theme.ValidationCard.Width(m.width - 2).Render(
			m.theme.ValidationTitle.Render("검증 결과 없음") + " " +
				m.theme.ShortcutDesc.Render("(C-g 로 검증을 요청하세요)"))
	}

	score := scoreView(m.theme, result)
	counts := proj.Count()
	summary := score + "  " + countsView(m.theme, counts)

	line := summary
	if issue, index, ok := proj.Current(); ok {
		line += "\n" + issueLine(m.theme, issue, index, counts.Total())
	}
	return m.theme.ValidationCard.Width(m.width - 2).Render(line)
}

func scoreView(theme *styles.Theme, result *protocol.ValidationResult) string {
	text := "점수 " + strconv.FormatFloat(result.ComplianceScore, 'f', -1, 64) + "/100"
	if result.IsValid {
		return theme.ScoreGood.Render(text)
	}
	return theme.ScoreBad.Render(text)
}

func countsView(theme *styles.Theme, counts validation.Counts) string {
	parts := []string{}
	if counts.Errors > 0 {
		parts = append(parts, theme.IssueError.Render(styles.IndicatorError+" 오류 "+strconv.Itoa(counts.Errors)))
	}
	if counts.Warnings > 0 {
		parts = append(parts, theme.IssueWarning.Render(styles.IndicatorWarning+" 경고 "+strconv.Itoa(counts.Warnings)))
	}
	if counts.Suggestions > 0 {
		parts = append(parts, theme.IssueSuggestion.Render(styles.IndicatorSuggestion+" 제안 "+strconv.Itoa(counts.Suggestions)))
	}
	if len(parts) == 0 {
		return theme.ScoreGood.Render("이슈 없음")
	}
	return strings.Join(parts, "  ")
}

// issueLine renders the issue under the navigation cursor, with its ordinal.
func issueLine(theme *styles.Theme, issue protocol.Issue, index, total int) string {
	marker := styles.SeverityIndicator(string(issue.Severity))
	position := "[" + strconv.Itoa(issue.Position.Start) + ":" + strconv.Itoa(issue.Position.End) + "]"
	text := marker + " (" + strconv.Itoa(index+1) + "/" + strconv.Itoa(total) + ") " + issue.Message + " " + position
	return theme.IssueSelected.Render(text)
}

// =============================================================================
// TRANSCRIPT AND SOURCE
// =============================================================================

// refreshViewport re-renders the viewport content from the current state.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	if m.showSource {
		m.viewport.SetContent(m.sourceView())
		return
	}
	m.viewport.SetContent(m.transcriptView())
}

func (m *Model) transcriptView() string {
	turns := m.agent.Transcript()
	if len(turns) == 0 {
		return m.theme.ShortcutDesc.Render("대화를 시작하세요. 문서 검증은 C-g 입니다.")
	}

	var sb strings.Builder
	for _, turn := range turns {
		sb.WriteString(m.renderTurn(turn))
		sb.WriteString("\n")
	}
	if m.pending {
		sb.WriteString(m.spin.View() + m.theme.ShortcutDesc.Render(" 응답을 기다리는 중..."))
	}
	return sb.String()
}

func (m *Model) renderTurn(turn agent.Turn) string {
	width := m.width - 8
	if width < 20 {
		width = 20
	}

	switch turn.Role {
	case agent.RoleUser:
		return m.theme.UserBubble.MaxWidth(width).Render(turn.Content)
	case agent.RoleAssistant:
		return m.theme.AssistantBubble.MaxWidth(width).Render(
			strings.TrimRight(m.renderMarkdown(turn.Content), "\n"))
	default:
		return m.theme.SystemBubble.MaxWidth(width).Render(turn.Content)
	}
}

func (m *Model) sourceView() string {
	buf := m.agent.Buffer()
	content := buf.Content
	if content == "" {
		content = "(빈 문서)"
	}
	mark := security.PortionMark(buf.SecurityLevel)
	return m.theme.SourceBlock.Width(m.width - 2).Render(
		mark + " " + buf.Title + "\n\n" + highlightSource(content))
}

// =============================================================================
// INPUT AND STATUS BAR
// =============================================================================

func (m *Model) inputView() string {
	return m.theme.InputContainer.Width(m.width).Render(m.input.View())
}

func (m *Model) statusBar() string {
	if m.statusMsg != "" {
		return m.theme.StatusBar.Width(m.width).Render(m.statusMsg)
	}

	var parts []string
	for _, binding := range m.keys.ShortHelp() {
		parts = append(parts,
			m.theme.ShortcutKey.Render(binding.Help().Key)+" "+
				m.theme.ShortcutDesc.Render(binding.Help().Desc))
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}

// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docenty/hunmin/internal/agent"
	"github.com/docenty/hunmin/internal/channel"
	"github.com/docenty/hunmin/internal/document"
	"github.com/docenty/hunmin/internal/protocol"
	"github.com/docenty/hunmin/internal/ui/styles"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeTransport struct {
	msgs     []protocol.Message
	analyzed []string
	chats    []string
	failSend bool
}

func (f *fakeTransport) MessagesSince(cursor int) ([]protocol.Message, int) {
	if cursor >= len(f.msgs) {
		return nil, cursor
	}
	batch := make([]protocol.Message, len(f.msgs)-cursor)
	copy(batch, f.msgs[cursor:])
	return batch, len(f.msgs)
}

func (f *fakeTransport) AnalyzeDocument(content, securityLevel string) error {
	if f.failSend {
		return channel.ErrNotConnected
	}
	f.analyzed = append(f.analyzed, content)
	return nil
}

func (f *fakeTransport) SendChat(message, documentContent string, history []protocol.ChatTurn) error {
	if f.failSend {
		return channel.ErrNotConnected
	}
	f.chats = append(f.chats, message)
	return nil
}

type fakeLink struct {
	status   channel.Status
	connects int
	resets   int
}

func (f *fakeLink) Status() channel.Status { return f.status }
func (f *fakeLink) Connect() error         { f.connects++; return nil }
func (f *fakeLink) ResetBackoff()          { f.resets++ }

func newTestModel(t *testing.T) (*Model, *fakeTransport, *fakeLink) {
	t.Helper()
	tr := &fakeTransport{}
	link := &fakeLink{status: channel.StatusConnected}
	m := New(agent.New(tr, document.NewBuffer()), link, styles.NewTheme())
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m, tr, link
}

// =============================================================================
// RENDER HELPERS
// =============================================================================

func TestConnectionIndicator(t *testing.T) {
	theme := styles.NewTheme()

	connected, _ := connectionIndicator(theme, channel.StatusConnected)
	assert.Equal(t, styles.IndicatorConnected, connected)

	connecting, _ := connectionIndicator(theme, channel.StatusConnecting)
	assert.Equal(t, styles.IndicatorConnecting, connecting)

	disconnected, _ := connectionIndicator(theme, channel.StatusDisconnected)
	assert.Equal(t, styles.IndicatorDisconnected, disconnected)
}

func TestIssueLine(t *testing.T) {
	theme := styles.NewTheme()
	issue := protocol.Issue{
		Type:     "length",
		Severity: protocol.SeverityError,
		Message:  "문서 내용이 너무 짧습니다.",
		Position: protocol.Span{Start: 0, End: 5},
	}

	line := issueLine(theme, issue, 1, 3)

	assert.Contains(t, line, "(2/3)")
	assert.Contains(t, line, "문서 내용이 너무 짧습니다.")
	assert.Contains(t, line, "[0:5]")
}

func TestValidationCardEmpty(t *testing.T) {
	m, _, _ := newTestModel(t)

	assert.Contains(t, m.validationCard(), "검증 결과 없음")
}

func TestValidationCardWithResult(t *testing.T) {
	m, tr, _ := newTestModel(t)
	tr.msgs = append(tr.msgs, protocol.Message{
		Type: protocol.KindAnalysis,
		Analysis: &protocol.ValidationResult{
			IsValid: false,
			Issues: []protocol.Issue{
				{Type: "length", Severity: protocol.SeverityError, Message: "문서 내용이 너무 짧습니다."},
			},
			ComplianceScore: 80,
			Timestamp:       "2025-06-01T09:00:00Z",
		},
	})
	m.Update(tickMsg(time.Now()))

	card := m.validationCard()
	assert.Contains(t, card, "점수 80/100")
	assert.Contains(t, card, "오류 1")
	assert.Contains(t, card, "(1/1)")
}

func TestHighlightSourceFallsBackOnEmpty(t *testing.T) {
	assert.NotEmpty(t, highlightSource("# 제목\n\n본문입니다."))
}

// =============================================================================
// UPDATE FLOW
// =============================================================================

func TestSubmitSendsChat(t *testing.T) {
	m, tr, _ := newTestModel(t)
	m.input.SetValue("요약해줘")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.pending)
	assert.Empty(t, m.input.Value())

	// The turn is on the transcript before the command runs: Update does
	// the mutation, the command only performs the send.
	require.Len(t, m.agent.Transcript(), 1)
	assert.Equal(t, "요약해줘", m.agent.Transcript()[0].Content)
	assert.Empty(t, tr.chats)

	// Running the command performs the send.
	assert.Nil(t, cmd())
	assert.Equal(t, []string{"요약해줘"}, tr.chats)
}

func TestSubmitIgnoresBlankInput(t *testing.T) {
	m, tr, _ := newTestModel(t)
	m.input.SetValue("   ")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, m.pending)
	assert.Empty(t, tr.chats)
}

func TestValidateKeySendsAnalyze(t *testing.T) {
	m, tr, _ := newTestModel(t)
	m.agent.Buffer().SetContent("검증할 본문입니다.")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlG})
	require.NotNil(t, cmd)
	assert.Nil(t, cmd())
	assert.Equal(t, []string{"검증할 본문입니다."}, tr.analyzed)
}

func TestValidateCommandCarriesSnapshot(t *testing.T) {
	m, tr, _ := newTestModel(t)
	m.agent.Buffer().SetContent("원래 본문")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlG})
	require.NotNil(t, cmd)

	// A buffer edit between the keypress and the command running must not
	// leak into the request.
	m.agent.Buffer().SetContent("나중에 바뀐 본문")

	assert.Nil(t, cmd())
	assert.Equal(t, []string{"원래 본문"}, tr.analyzed)
}

func TestSendFailureClearsPending(t *testing.T) {
	m, tr, _ := newTestModel(t)
	tr.failSend = true
	m.input.SetValue("안녕")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, sendFailedMsg{}, msg)

	m.Update(msg)
	assert.False(t, m.pending)
	assert.Contains(t, m.statusBar(), "전송 실패")
}

func TestTickDrainsReplyAndClearsPending(t *testing.T) {
	m, tr, _ := newTestModel(t)
	m.pending = true
	tr.msgs = append(tr.msgs, protocol.Message{Type: protocol.KindChat, Reply: "답변"})

	_, cmd := m.Update(tickMsg(time.Now()))
	require.NotNil(t, cmd)

	assert.False(t, m.pending)
	require.NotEmpty(t, m.agent.Transcript())
	last := m.agent.Transcript()[len(m.agent.Transcript())-1]
	assert.Equal(t, agent.RoleAssistant, last.Role)
	assert.Equal(t, "답변", last.Content)
}

func TestToggleSourceView(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.agent.Buffer().SetContent("# 보고서\n\n본문")

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.True(t, m.showSource)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.False(t, m.showSource)
}

func TestReconnectKey(t *testing.T) {
	m, _, link := newTestModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, 1, link.resets)
	assert.Equal(t, 1, link.connects)
}

func TestViewRendersBanners(t *testing.T) {
	m, _, _ := newTestModel(t)

	view := m.View()
	assert.Contains(t, view, "일반")
	assert.Contains(t, view, "새 문서")
}

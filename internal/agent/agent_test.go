// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docenty/hunmin/internal/document"
	"github.com/docenty/hunmin/internal/protocol"
	"github.com/docenty/hunmin/internal/security"
)

// =============================================================================
// FAKE TRANSPORT
// =============================================================================

type analyzeCall struct {
	content string
	level   string
}

type chatCall struct {
	message  string
	document string
	history  []protocol.ChatTurn
}

type fakeTransport struct {
	log      []protocol.Message
	analyzed []analyzeCall
	chats    []chatCall
	sendErr  error
}

func (f *fakeTransport) MessagesSince(cursor int) ([]protocol.Message, int) {
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(f.log) {
		return nil, len(f.log)
	}
	return f.log[cursor:], len(f.log)
}

func (f *fakeTransport) AnalyzeDocument(content, level string) error {
	f.analyzed = append(f.analyzed, analyzeCall{content: content, level: level})
	return f.sendErr
}

func (f *fakeTransport) SendChat(message, doc string, history []protocol.ChatTurn) error {
	cp := make([]protocol.ChatTurn, len(history))
	copy(cp, history)
	f.chats = append(f.chats, chatCall{message: message, document: doc, history: cp})
	return f.sendErr
}

func (f *fakeTransport) push(msg protocol.Message) {
	f.log = append(f.log, msg)
}

func newTestAgent() (*Agent, *fakeTransport) {
	tr := &fakeTransport{}
	a := New(tr, document.NewBuffer())
	a.now = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
	return a, tr
}

func validResult(ts string) *protocol.ValidationResult {
	return &protocol.ValidationResult{
		IsValid:         false,
		ComplianceScore: 75,
		Timestamp:       ts,
		Issues: []protocol.Issue{
			{Type: "length", Severity: protocol.SeverityError, Message: "문서 내용이 너무 짧습니다."},
		},
	}
}

// =============================================================================
// ROUTING
// =============================================================================

func TestDrainConsumesEachMessageExactlyOnce(t *testing.T) {
	a, tr := newTestAgent()

	tr.push(protocol.Message{Type: protocol.KindPong})
	tr.push(protocol.Message{Type: protocol.KindChat, Reply: "확인했습니다"})

	events := a.Drain()
	require.Len(t, events, 2)
	assert.Equal(t, EventPong, events[0].Kind)
	assert.Equal(t, EventReply, events[1].Kind)

	// Nothing new: repeated drains are no-ops.
	assert.Nil(t, a.Drain())
	assert.Nil(t, a.Drain())

	// A later arrival is picked up once.
	tr.push(protocol.Message{Type: protocol.KindChat, Reply: "추가 답변"})
	events = a.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, "추가 답변", events[0].Text)
	assert.Nil(t, a.Drain())
}

func TestAnalysisUpdatesProjectionAndTranscript(t *testing.T) {
	a, tr := newTestAgent()

	tr.push(protocol.Message{Type: protocol.KindAnalysis, Analysis: validResult("2025-06-01T09:00:00Z")})
	events := a.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, EventValidation, events[0].Kind)
	assert.Contains(t, events[0].Text, "75/100")

	require.Len(t, a.Transcript(), 1)
	assert.Equal(t, RoleAssistant, a.Transcript()[0].Role)
	require.NotNil(t, a.Projection().Last())
	assert.Equal(t, 1, a.Projection().Count().Errors)

	// Redelivery of the same result timestamp has no further effect.
	tr.push(protocol.Message{Type: protocol.KindAnalysis, Analysis: validResult("2025-06-01T09:00:00Z")})
	assert.Empty(t, a.Drain())
	assert.Len(t, a.Transcript(), 1)
}

func TestDocumentUpdateMutatesBuffer(t *testing.T) {
	a, tr := newTestAgent()
	a.Buffer().SetContent("기존 내용")

	content := "새로운 내용"
	tr.push(protocol.Message{Type: protocol.KindDocumentUpdate, Update: &protocol.DocumentUpdate{
		Action:  protocol.ActionReplace,
		Content: &content,
	}})

	events := a.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, EventDocumentChanged, events[0].Kind)
	assert.Equal(t, "새로운 내용", a.Buffer().Content)

	require.Len(t, a.Transcript(), 1)
	assert.Equal(t, RoleSystem, a.Transcript()[0].Role)
}

func TestDocumentUpdateErrorIsIsolated(t *testing.T) {
	a, tr := newTestAgent()
	a.Buffer().SetContent("본문")

	tr.push(protocol.Message{Type: protocol.KindDocumentUpdate, Update: &protocol.DocumentUpdate{
		Action: "rotate",
	}})
	tr.push(protocol.Message{Type: protocol.KindChat, Reply: "계속 진행합니다"})

	events := a.Drain()
	require.Len(t, events, 2)
	assert.Equal(t, EventError, events[0].Kind)
	assert.Equal(t, EventReply, events[1].Kind)
	assert.Equal(t, "본문", a.Buffer().Content)
}

func TestMissingFieldUpdateProducesNoEvent(t *testing.T) {
	a, tr := newTestAgent()
	a.Buffer().SetContent("본문")

	tr.push(protocol.Message{Type: protocol.KindDocumentUpdate, Update: &protocol.DocumentUpdate{
		Action: protocol.ActionReplace,
	}})

	assert.Empty(t, a.Drain())
	assert.Equal(t, "본문", a.Buffer().Content)
	assert.Empty(t, a.Transcript())
}

func TestPongRecordsReceiptTime(t *testing.T) {
	a, tr := newTestAgent()

	tr.push(protocol.Message{Type: protocol.KindPong})
	events := a.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, EventPong, events[0].Kind)
	assert.False(t, a.LastPong().IsZero())
	assert.Empty(t, a.Transcript())
}

func TestWorkerErrorFallsBackToGenericText(t *testing.T) {
	a, tr := newTestAgent()

	tr.push(protocol.Message{Type: protocol.KindError})
	events := a.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Kind)
	assert.Equal(t, "알 수 없는 오류가 발생했습니다.", events[0].Text)
}

// =============================================================================
// OUTBOUND
// =============================================================================

func TestValidateSendsBufferWithMarking(t *testing.T) {
	a, tr := newTestAgent()
	a.Buffer().SetContent("작전 계획 개요")
	a.Buffer().SetSecurityLevel(security.LevelSecretII)

	require.NoError(t, a.Validate()())
	require.Len(t, tr.analyzed, 1)
	assert.Equal(t, "작전 계획 개요", tr.analyzed[0].content)
	assert.Equal(t, "II급비밀", tr.analyzed[0].level)
}

func TestValidateSendStepUsesSnapshot(t *testing.T) {
	a, tr := newTestAgent()
	a.Buffer().SetContent("초안")
	a.Buffer().SetSecurityLevel(security.LevelConfidential)

	send := a.Validate()
	a.Buffer().SetContent("이후에 바뀐 본문")
	a.Buffer().SetSecurityLevel(security.LevelSecretI)

	require.NoError(t, send())
	require.Len(t, tr.analyzed, 1)
	assert.Equal(t, "초안", tr.analyzed[0].content)
	assert.Equal(t, "대외비", tr.analyzed[0].level)
}

func TestAskRecordsTurnAndExcludesSystemNotices(t *testing.T) {
	a, tr := newTestAgent()
	a.Buffer().SetContent("본문")

	require.NoError(t, a.Ask("문서를 검토해줘")())
	tr.push(protocol.Message{Type: protocol.KindChat, Reply: "검토를 시작합니다"})
	tr.push(protocol.Message{Type: protocol.KindError, ErrorText: "일시적인 오류"})
	a.Drain()

	require.NoError(t, a.Ask("요약도 부탁해")())
	require.Len(t, tr.chats, 2)

	// The second call carries the prior user and assistant turns but not
	// the system notice; the message being sent is not yet history.
	history := tr.chats[1].history
	require.Len(t, history, 2)
	assert.Equal(t, protocol.ChatTurn{Role: "user", Content: "문서를 검토해줘"}, history[0])
	assert.Equal(t, protocol.ChatTurn{Role: "assistant", Content: "검토를 시작합니다"}, history[1])
	assert.Equal(t, "본문", tr.chats[1].document)
}

func TestAskRecordsTurnBeforeSendRuns(t *testing.T) {
	a, tr := newTestAgent()

	send := a.Ask("안녕하세요")

	// The turn is on the transcript as soon as Ask returns; nothing has
	// gone over the wire yet.
	require.Len(t, a.Transcript(), 1)
	assert.Equal(t, RoleUser, a.Transcript()[0].Role)
	assert.Empty(t, tr.chats)

	require.NoError(t, send())
	require.Len(t, tr.chats, 1)
	assert.Equal(t, "안녕하세요", tr.chats[0].message)
}

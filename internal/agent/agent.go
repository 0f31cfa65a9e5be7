// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent routes inbound worker messages to their session effects.
//
// The agent owns a monotonic cursor into the channel's append-only message
// log. Every drain consumes only the messages past the cursor, in receipt
// order, so each message is applied exactly once no matter how often the UI
// polls. Per-message effects are isolated: a failing document mutation
// surfaces as an error event and the drain continues with the next message.
package agent

import (
	"fmt"
	"time"

	"github.com/docenty/hunmin/internal/document"
	"github.com/docenty/hunmin/internal/protocol"
	"github.com/docenty/hunmin/internal/validation"
)

// Transport is the slice of the channel API the agent needs. Satisfied by
// *channel.Channel; tests substitute a fake.
type Transport interface {
	MessagesSince(cursor int) ([]protocol.Message, int)
	AnalyzeDocument(content, securityLevel string) error
	SendChat(message, documentContent string, history []protocol.ChatTurn) error
}

// =============================================================================
// EVENTS
// =============================================================================

// EventKind classifies a drained effect for the UI.
type EventKind int

const (
	EventValidation EventKind = iota
	EventReply
	EventDocumentChanged
	EventPong
	EventError
)

// Event is one UI-visible effect produced by a drain.
type Event struct {
	Kind   EventKind
	Text   string
	Result *protocol.ValidationResult
}

// Turn is one entry of the conversation transcript.
type Turn struct {
	Role    string
	Content string
	At      time.Time
}

// Transcript roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// =============================================================================
// AGENT
// =============================================================================

// Agent is the session state behind the assistant panel: transcript,
// validation projection, document buffer, and the inbound cursor.
//
// Not safe for concurrent use; the UI event loop is the single caller.
type Agent struct {
	transport Transport
	buf       *document.Buffer
	proj      *validation.Projection

	cursor     int
	transcript []Turn
	lastPong   time.Time

	now func() time.Time
}

// New creates an agent bound to the given transport and document buffer.
func New(transport Transport, buf *document.Buffer) *Agent {
	return &Agent{
		transport: transport,
		buf:       buf,
		proj:      validation.NewProjection(),
		now:       time.Now,
	}
}

// Buffer returns the document buffer the agent mutates.
func (a *Agent) Buffer() *document.Buffer { return a.buf }

// Projection returns the validation projection for UI rendering.
func (a *Agent) Projection() *validation.Projection { return a.proj }

// Transcript returns the conversation turns in order.
func (a *Agent) Transcript() []Turn { return a.transcript }

// LastPong returns the receipt time of the most recent pong, or zero.
func (a *Agent) LastPong() time.Time { return a.lastPong }

// =============================================================================
// OUTBOUND
// =============================================================================

// Validate snapshots the current buffer and returns the send step. The
// snapshot happens on the caller's goroutine; the returned func touches only
// the transport, so callers may run it off the event loop.
func (a *Agent) Validate() func() error {
	content := a.buf.Content
	marking := a.buf.SecurityLevel.Marking()
	return func() error {
		return a.transport.AnalyzeDocument(content, marking)
	}
}

// Ask records the user's message in the transcript and returns the send step
// carrying a snapshot of the document text and prior history. The turn is
// recorded even when the send is later dropped, matching what the user saw
// themselves type. Like Validate, the returned func touches only the
// transport.
func (a *Agent) Ask(message string) func() error {
	history := a.ChatHistory()
	a.transcript = append(a.transcript, Turn{Role: RoleUser, Content: message, At: a.now()})
	content := a.buf.Content
	return func() error {
		return a.transport.SendChat(message, content, history)
	}
}

// ChatHistory converts the user/assistant turns of the transcript into the
// wire history shape. System notices stay local.
func (a *Agent) ChatHistory() []protocol.ChatTurn {
	history := make([]protocol.ChatTurn, 0, len(a.transcript))
	for _, turn := range a.transcript {
		if turn.Role == RoleSystem {
			continue
		}
		history = append(history, protocol.ChatTurn{Role: turn.Role, Content: turn.Content})
	}
	return history
}

// =============================================================================
// INBOUND ROUTING
// =============================================================================

// Drain consumes all messages logged since the previous drain and applies
// their effects, returning the UI events in order. Draining with nothing
// pending returns nil.
func (a *Agent) Drain() []Event {
	batch, next := a.transport.MessagesSince(a.cursor)
	a.cursor = next
	if len(batch) == 0 {
		return nil
	}

	events := make([]Event, 0, len(batch))
	for _, msg := range batch {
		if ev, ok := a.apply(msg); ok {
			events = append(events, ev)
		}
	}
	return events
}

// apply performs the effect of one inbound message.
func (a *Agent) apply(msg protocol.Message) (Event, bool) {
	switch msg.Type {
	case protocol.KindAnalysis:
		if !a.proj.Observe(msg.Analysis) {
			// Duplicate delivery of an already seen result.
			return Event{}, false
		}
		summary := validation.Summarize(msg.Analysis)
		a.transcript = append(a.transcript, Turn{Role: RoleAssistant, Content: summary, At: a.now()})
		return Event{Kind: EventValidation, Text: summary, Result: msg.Analysis}, true

	case protocol.KindChat:
		a.transcript = append(a.transcript, Turn{Role: RoleAssistant, Content: msg.Reply, At: a.now()})
		return Event{Kind: EventReply, Text: msg.Reply}, true

	case protocol.KindDocumentUpdate:
		outcome, err := document.ApplyUpdate(a.buf, msg.Update)
		if err != nil {
			text := fmt.Sprintf("문서 수정 지시를 적용하지 못했습니다: %v", err)
			a.transcript = append(a.transcript, Turn{Role: RoleSystem, Content: text, At: a.now()})
			return Event{Kind: EventError, Text: text}, true
		}
		if outcome == document.OutcomeNone {
			return Event{}, false
		}
		notice := outcome.Notice()
		a.transcript = append(a.transcript, Turn{Role: RoleSystem, Content: notice, At: a.now()})
		return Event{Kind: EventDocumentChanged, Text: notice}, true

	case protocol.KindPong:
		a.lastPong = a.now()
		return Event{Kind: EventPong}, true

	case protocol.KindError:
		text := msg.ErrorText
		if text == "" {
			text = "알 수 없는 오류가 발생했습니다."
		}
		a.transcript = append(a.transcript, Turn{Role: RoleSystem, Content: text, At: a.now()})
		return Event{Kind: EventError, Text: text}, true
	}
	return Event{}, false
}

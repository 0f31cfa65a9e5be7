// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package protocol defines the wire contract for the AI worker channel.
//
// The channel carries UTF-8 JSON text frames in both directions. Outbound
// frames are requests (analyze, chat, ping); inbound frames are tagged
// envelopes (analysis, chat, pong, error, document_update). The payload shape
// of an inbound envelope is fully determined by its type tag: decoding is a
// closed tagged union, never probed beyond the tag.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnknownType indicates an inbound envelope with an unrecognized type
	// tag. Callers are expected to log and drop the frame, not fail the
	// connection.
	ErrUnknownType = errors.New("unknown message type")

	// ErrMalformed indicates a frame that is not valid JSON or whose payload
	// does not match the shape its type tag requires.
	ErrMalformed = errors.New("malformed message")
)

// =============================================================================
// OUTBOUND REQUESTS
// =============================================================================

// Request kinds accepted by the worker.
const (
	RequestAnalyze = "analyze"
	RequestChat    = "chat"
	RequestPing    = "ping"
)

// ChatTurn is a single role/content pair in a conversation history.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnalyzeRequest asks the worker to validate a document.
type AnalyzeRequest struct {
	Type          string `json:"type"`
	Content       string `json:"content"`
	SecurityLevel string `json:"security_level"`
}

// ChatRequest sends a chat message, optionally carrying the current document
// and prior conversation turns as context.
type ChatRequest struct {
	Type            string     `json:"type"`
	Message         string     `json:"message"`
	DocumentContent string     `json:"document_content,omitempty"`
	History         []ChatTurn `json:"history"`
}

// PingRequest is a liveness probe. The worker answers with a pong envelope.
type PingRequest struct {
	Type string `json:"type"`
}

// NewAnalyzeRequest builds an analyze request for the given document content.
func NewAnalyzeRequest(content, securityLevel string) AnalyzeRequest {
	return AnalyzeRequest{Type: RequestAnalyze, Content: content, SecurityLevel: securityLevel}
}

// NewChatRequest builds a chat request. History is passed through verbatim;
// a nil history marshals as an empty array, matching the worker's contract.
func NewChatRequest(message, documentContent string, history []ChatTurn) ChatRequest {
	if history == nil {
		history = []ChatTurn{}
	}
	return ChatRequest{Type: RequestChat, Message: message, DocumentContent: documentContent, History: history}
}

// NewPingRequest builds a ping request.
func NewPingRequest() PingRequest {
	return PingRequest{Type: RequestPing}
}

// =============================================================================
// INBOUND ENVELOPES
// =============================================================================

// Kind is the discriminator tag on inbound envelopes.
type Kind string

// Inbound envelope kinds.
const (
	KindAnalysis       Kind = "analysis"
	KindChat           Kind = "chat"
	KindPong           Kind = "pong"
	KindError          Kind = "error"
	KindDocumentUpdate Kind = "document_update"
)

// Message is a decoded inbound envelope. Exactly one payload field is set,
// according to Type. Messages are immutable after decoding.
type Message struct {
	Type      Kind
	Timestamp string

	// Analysis carries the validation result for KindAnalysis.
	Analysis *ValidationResult

	// Reply carries the assistant's text for KindChat.
	Reply string

	// Update carries the mutation instruction for KindDocumentUpdate.
	Update *DocumentUpdate

	// ErrorText carries the human-readable message for KindError.
	ErrorText string
}

// rawEnvelope is the on-the-wire inbound shape before tag dispatch.
type rawEnvelope struct {
	Type      Kind            `json:"type"`
	Result    json.RawMessage `json:"result"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"`
}

// Decode parses an inbound frame into a Message.
//
// Frames with an unrecognized type tag return ErrUnknownType; frames whose
// payload does not match the tag return ErrMalformed. Both are per-message
// failures: the caller drops the frame and keeps reading.
func Decode(data []byte) (Message, error) {
	var env rawEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	msg := Message{Type: env.Type, Timestamp: env.Timestamp}

	switch env.Type {
	case KindAnalysis:
		var result ValidationResult
		if err := json.Unmarshal(env.Result, &result); err != nil {
			return Message{}, fmt.Errorf("%w: analysis payload: %v", ErrMalformed, err)
		}
		msg.Analysis = &result

	case KindChat:
		// The worker has shipped chat replies under both "result" and
		// "message"; accept either, preferring "result" when present.
		if env.Result != nil {
			var reply string
			if err := json.Unmarshal(env.Result, &reply); err != nil {
				return Message{}, fmt.Errorf("%w: chat payload: %v", ErrMalformed, err)
			}
			msg.Reply = reply
		} else {
			msg.Reply = env.Message
		}

	case KindDocumentUpdate:
		var update DocumentUpdate
		if err := json.Unmarshal(env.Result, &update); err != nil {
			return Message{}, fmt.Errorf("%w: document_update payload: %v", ErrMalformed, err)
		}
		msg.Update = &update

	case KindError:
		msg.ErrorText = env.Message

	case KindPong:
		// Timestamp only.

	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}

	return msg, nil
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// Severity classifies a validation issue.
type Severity string

// Issue severities, ordered from most to least severe.
const (
	SeverityError      Severity = "error"
	SeverityWarning    Severity = "warning"
	SeveritySuggestion Severity = "suggestion"
)

// Span is a half-open character range [Start, End) into the document.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Issue is a single finding from document validation.
type Issue struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Position Span     `json:"position"`
}

// ValidationResult is the worker's structured assessment of a document.
// A newer result replaces the prior one wholesale; results are never merged.
type ValidationResult struct {
	IsValid         bool     `json:"is_valid"`
	Issues          []Issue  `json:"issues"`
	Suggestions     []string `json:"suggestions"`
	ComplianceScore float64  `json:"compliance_score"`
	Timestamp       string   `json:"timestamp"`
}

// =============================================================================
// DOCUMENT UPDATE
// =============================================================================

// Action selects the mutation a DocumentUpdate performs.
type Action string

// Document update actions.
const (
	ActionReplace     Action = "replace"
	ActionInsert      Action = "insert"
	ActionAppend      Action = "append"
	ActionUpdateStyle Action = "update_style"
)

// Position locates an insert. Fields are pointers because the worker may omit
// them; an insert without a start offset is a no-op at the applier.
type Position struct {
	Start *int `json:"start,omitempty"`
	End   *int `json:"end,omitempty"`
}

// Style carries style fields for update_style. Only SecurityLevel is acted on
// by the client today; the remaining fields are passed through for the
// document owner to interpret.
type Style struct {
	Font          string  `json:"font,omitempty"`
	FontSize      float64 `json:"fontSize,omitempty"`
	LineHeight    float64 `json:"lineHeight,omitempty"`
	SecurityLevel string  `json:"securityLevel,omitempty"`
}

// DocumentUpdate is a worker-issued instruction to mutate the client's
// document buffer. Fields required by the selected Action may be absent, in
// which case the update is a no-op, not an error.
type DocumentUpdate struct {
	Action   Action    `json:"action"`
	Content  *string   `json:"content,omitempty"`
	Position *Position `json:"position,omitempty"`
	Style    *Style    `json:"style,omitempty"`
}

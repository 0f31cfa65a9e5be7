// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package channel

import (
	"encoding/json"
	"fmt"

	"github.com/docenty/hunmin/internal/protocol"
)

// =============================================================================
// TYPED DISPATCH
// =============================================================================

// AnalyzeDocument requests a validation pass over the document. An empty
// security level falls back to DefaultSecurityLevel.
func (c *Channel) AnalyzeDocument(content, securityLevel string) error {
	if securityLevel == "" {
		securityLevel = DefaultSecurityLevel
	}
	return c.sendJSON(protocol.NewAnalyzeRequest(content, securityLevel))
}

// SendChat sends a conversational turn alongside the current document text
// and prior transcript.
func (c *Channel) SendChat(message, documentContent string, history []protocol.ChatTurn) error {
	return c.sendJSON(protocol.NewChatRequest(message, documentContent, history))
}

// Ping sends a liveness probe. The worker answers with a pong frame.
func (c *Channel) Ping() error {
	return c.sendJSON(protocol.NewPingRequest())
}

func (c *Channel) sendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.send(data)
}

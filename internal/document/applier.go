// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"fmt"

	"github.com/docenty/hunmin/internal/protocol"
	"github.com/docenty/hunmin/internal/security"
)

// Outcome describes what an update did to the buffer, for the transient
// notification shown to the user.
type Outcome int

const (
	// OutcomeNone means the update was missing a required field and the
	// buffer was left untouched. Not an error.
	OutcomeNone Outcome = iota
	OutcomeReplaced
	OutcomeInserted
	OutcomeAppended
	OutcomeStyleChanged
)

// Notice returns the Korean notification text for the outcome, or "" for
// OutcomeNone.
func (o Outcome) Notice() string {
	switch o {
	case OutcomeReplaced:
		return "AI가 문서를 수정했습니다."
	case OutcomeInserted:
		return "AI가 텍스트를 추가했습니다."
	case OutcomeAppended:
		return "AI가 문서 끝에 텍스트를 추가했습니다."
	case OutcomeStyleChanged:
		return "보안 등급이 변경되었습니다."
	default:
		return ""
	}
}

// ApplyUpdate applies a worker-issued mutation to the buffer.
//
// Each update is one-shot: applied immediately, exactly once, then discarded.
// An update missing a field its action requires is a no-op (OutcomeNone), not
// an error. Offsets are rune offsets into the current content; an insert
// offset beyond either end is clamped. A failing update returns an error and
// leaves the buffer unchanged; the caller isolates it per message.
func ApplyUpdate(buf *Buffer, update *protocol.DocumentUpdate) (Outcome, error) {
	if buf == nil || update == nil {
		return OutcomeNone, nil
	}

	switch update.Action {
	case protocol.ActionReplace:
		if update.Content == nil {
			return OutcomeNone, nil
		}
		buf.SetContent(*update.Content)
		return OutcomeReplaced, nil

	case protocol.ActionInsert:
		if update.Content == nil || update.Position == nil || update.Position.Start == nil {
			return OutcomeNone, nil
		}
		runes := []rune(buf.Content)
		at := *update.Position.Start
		if at < 0 {
			at = 0
		}
		if at > len(runes) {
			at = len(runes)
		}
		buf.SetContent(string(runes[:at]) + *update.Content + string(runes[at:]))
		return OutcomeInserted, nil

	case protocol.ActionAppend:
		if update.Content == nil {
			return OutcomeNone, nil
		}
		buf.SetContent(buf.Content + *update.Content)
		return OutcomeAppended, nil

	case protocol.ActionUpdateStyle:
		if update.Style == nil || update.Style.SecurityLevel == "" {
			return OutcomeNone, nil
		}
		level, err := security.ParseLevel(update.Style.SecurityLevel)
		if err != nil {
			return OutcomeNone, fmt.Errorf("update_style: %w", err)
		}
		buf.SetSecurityLevel(level)
		return OutcomeStyleChanged, nil

	default:
		return OutcomeNone, fmt.Errorf("unknown update action %q", update.Action)
	}
}

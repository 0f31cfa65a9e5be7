// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

// highlightSource renders document text with markdown syntax highlighting for
// the source view. Highlighting failures fall back to the plain text;
// documents are prose and usually have little to highlight anyway.
func highlightSource(content string) string {
	var sb strings.Builder
	if err := quick.Highlight(&sb, content, "markdown", "terminal256", "monokai"); err != nil {
		return content
	}
	return strings.TrimRight(sb.String(), "\n")
}

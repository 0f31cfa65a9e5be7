// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package worker

import (
	"strings"
)

// =============================================================================
// CHAT RESPONDER
// =============================================================================

const summaryRunes = 100

// Respond produces the assistant reply for a chat message. When document
// content is present, document-centric intents (요약, 개선, 검토) take
// precedence; otherwise the general intents apply.
func Respond(message, documentContent string) string {
	lower := strings.ToLower(message)

	if documentContent != "" {
		switch {
		case strings.Contains(lower, "요약") || strings.Contains(lower, "summary"):
			return "문서 요약: " + headRunes(documentContent, summaryRunes)
		case strings.Contains(lower, "개선") || strings.Contains(lower, "improve"):
			return "문서 개선 제안: 1) 문단 구조 정리, 2) 전문 용어 설명 추가, 3) 결론 부분 강화"
		case strings.Contains(lower, "검토") || strings.Contains(lower, "review"):
			return "문서 검토 결과: 전반적으로 양호하나, 일부 문법 오류와 표현 개선이 필요합니다."
		}
	}

	switch {
	case strings.Contains(lower, "안녕") || strings.Contains(lower, "hello"):
		return "안녕하세요! 문서 작성과 검토를 도와드리겠습니다. 어떤 도움이 필요하신가요?"
	case strings.Contains(lower, "도움") || strings.Contains(lower, "help"):
		return "다음과 같은 기능을 제공합니다:\n- 문서 검증 및 오류 검출\n- 문서 요약 및 개선 제안\n- 보안 등급 확인\n- 문법 및 맞춤법 검사"
	}

	return "'" + message + "'에 대해 답변드리겠습니다. 더 구체적인 질문을 해주시면 더 정확한 도움을 드릴 수 있습니다."
}

// headRunes returns the first n runes of s, with an ellipsis when s is
// longer.
func headRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

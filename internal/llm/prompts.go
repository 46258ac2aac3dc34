package llm

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxPromptTextLen = 12000

const extractionInstructions = `다음은 정부 지원사업 공고문입니다. 공고문에서 아래 항목을 추출해 JSON 객체로만 답하세요.

반드시 다음 키를 모두 포함해야 합니다:
- title: 공고 제목
- target: 지원 대상 (예: 중소기업, 청년, 소상공인)
- target_type: 지원 대상 유형 (기업/개인/단체 중 하나)
- amount: 지원 금액
- period: 지원 기간
- schedule: 신청 일정
- content: 지원 내용 요약 (2-3문장)
- announcement_date: 공고일 (원문 표기 그대로)
- source_url: 원본 공고 URL

찾을 수 없는 항목은 "정보 없음"으로, 해당하지 않는 항목은 "해당없음"으로 채우세요.
설명 없이 JSON 객체만 반환하세요.`

func buildExtractionPrompt(text string, retrievalContext []string) string {
	var sb strings.Builder

	sb.WriteString(extractionInstructions)

	if len(retrievalContext) > 0 {
		sb.WriteString("\n\n참고: 같은 기관의 유사 공고 발췌 (추출 형식 참고용, 요약 대상 아님):\n")

		for i, snippet := range retrievalContext {
			sb.WriteString(fmt.Sprintf("[%d] %s\n", i+1, truncate(snippet, 500)))
		}
	}

	sb.WriteString("\n\n공고문:\n")
	sb.WriteString(truncate(text, maxPromptTextLen))

	return sb.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	// Back off to a rune boundary so the cut never splits a Hangul syllable.
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	return s[:cut]
}

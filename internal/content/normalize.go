package content

import (
	"strings"
	"unicode"
)

// Boilerplate markers that indicate site chrome rather than announcement
// body. Lines at the edges of the document matching one of these are
// trimmed away together with everything outside them.
var boilerplateMarkers = []string{
	"이전글",
	"다음글",
	"목록보기",
	"개인정보처리방침",
	"저작권",
	"COPYRIGHT",
	"Copyright",
	"사이트맵",
	"바로가기",
	"로그인",
	"회원가입",
}

// NormalizePrimary strips site chrome and control noise from the primary
// artifact. The structural heuristic keeps the span between the first and
// last significant heading; boilerplate-marker lines outside the body are
// dropped with their surroundings.
func NormalizePrimary(text string) string {
	lines := strings.Split(text, "\n")

	start, end := contentBounds(lines)

	var sb strings.Builder

	for _, line := range lines[start:end] {
		cleaned := stripNoise(line)
		if strings.TrimSpace(cleaned) == "" {
			continue
		}

		if isBoilerplate(cleaned) {
			continue
		}

		sb.WriteString(cleaned)
		sb.WriteString("\n")
	}

	return strings.TrimSpace(sb.String())
}

// contentBounds locates the first and last significant heading. Without
// headings the whole document is the body.
func contentBounds(lines []string) (int, int) {
	start, end := 0, len(lines)

	for i, line := range lines {
		if isHeading(line) {
			start = i

			break
		}
	}

	for i := len(lines) - 1; i > start; i-- {
		if isHeading(lines[i]) {
			// Keep content following the last heading too; the heading only
			// anchors where trailing chrome can begin.
			end = trailingBoundary(lines, i)

			break
		}
	}

	if start >= end {
		return 0, len(lines)
	}

	return start, end
}

func trailingBoundary(lines []string, lastHeading int) int {
	for i := lastHeading; i < len(lines); i++ {
		if isBoilerplate(lines[i]) {
			return i
		}
	}

	return len(lines)
}

func isHeading(line string) bool {
	trimmed := strings.TrimSpace(line)

	return strings.HasPrefix(trimmed, "#") && len(trimmed) > 1
}

func isBoilerplate(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	for _, marker := range boilerplateMarkers {
		if strings.Contains(trimmed, marker) {
			return true
		}
	}

	return false
}

// stripNoise removes control and non-textual characters while preserving
// Hangul, Latin, Han, digits, punctuation and plain whitespace.
func stripNoise(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == ' ':
			return r
		case unicode.IsControl(r):
			return -1
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsPunct(r), unicode.IsSymbol(r), unicode.IsSpace(r):
			return r
		default:
			return -1
		}
	}, s)
}

package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePrimaryTrimsLeadingChrome(t *testing.T) {
	raw := "메인메뉴 바로가기\n로그인\n# 2024년 소상공인 지원사업 공고\n신청기간: 2024-03-01부터\n"

	got := NormalizePrimary(raw)

	assert.Contains(t, got, "# 2024년 소상공인 지원사업 공고")
	assert.Contains(t, got, "신청기간")
	assert.NotContains(t, got, "바로가기")
	assert.NotContains(t, got, "로그인")
}

func TestNormalizePrimaryTrimsTrailingChrome(t *testing.T) {
	raw := "# 공고\n본문 첫 문단\n## 지원내용\n보조금 세부 내역\n이전글 다른 공고\nCOPYRIGHT 2024 시청\n"

	got := NormalizePrimary(raw)

	assert.Contains(t, got, "보조금 세부 내역")
	assert.NotContains(t, got, "이전글")
	assert.NotContains(t, got, "COPYRIGHT")
}

func TestNormalizePrimaryKeepsBodyAfterLastHeading(t *testing.T) {
	raw := "# 공고\n개요\n## 문의처\n시청 경제과 031-123-4567\n"

	got := NormalizePrimary(raw)

	assert.Contains(t, got, "시청 경제과 031-123-4567")
}

func TestNormalizePrimaryNoHeadings(t *testing.T) {
	raw := "제목 없는 문서\n본문 내용입니다\n"

	got := NormalizePrimary(raw)

	assert.Contains(t, got, "제목 없는 문서")
	assert.Contains(t, got, "본문 내용입니다")
}

func TestNormalizePrimaryDropsEmbeddedBoilerplateLines(t *testing.T) {
	raw := "# 공고\n본문\n개인정보처리방침 안내\n추가 본문\n"

	got := NormalizePrimary(raw)

	assert.NotContains(t, got, "개인정보처리방침")
	assert.Contains(t, got, "추가 본문")
}

func TestNormalizePrimaryStripsControlCharacters(t *testing.T) {
	got := NormalizePrimary("# 공고\n본\x00문\x07 내용\n")

	assert.Contains(t, got, "본문 내용")
}

func TestNormalizePrimaryEmptyInput(t *testing.T) {
	assert.Empty(t, NormalizePrimary(""))
	assert.Empty(t, NormalizePrimary("\n\n  \n"))
}

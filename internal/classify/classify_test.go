package classify

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClassifier(threshold float64, keywords []CategoryKeyword, industry []IndustryKeyword) *Classifier {
	logger := zerolog.Nop()

	return New(keywords, industry, threshold, &logger)
}

func defaultKeywords() []CategoryKeyword {
	return []CategoryKeyword{
		{Category: "청년", Keyword: "청년", Synonyms: []string{"만 39세 이하"}, Weight: 2.0},
		{Category: "소상공인", Keyword: "소상공인", Synonyms: []string{"자영업자"}, Weight: 2.0},
		{Category: "중소기업", Keyword: "중소기업", Weight: 2.0},
	}
}

func TestClassifyTextOnlySource(t *testing.T) {
	c := newTestClassifier(1.0, defaultKeywords(), nil)

	result := c.Classify("", "이 사업은 청년 창업가를 돕습니다. 청년 누구나 참여할 수 있습니다.")

	assert.Equal(t, "청년", result.Primary)
	assert.Contains(t, result.Secondary, "청년")
	assert.Contains(t, result.Matched, "청년")
}

func TestClassifyNoSourcesIsUnclassified(t *testing.T) {
	c := newTestClassifier(1.0, defaultKeywords(), nil)

	result := c.Classify("", "")

	assert.Equal(t, Unclassified, result.Primary)
	assert.Empty(t, result.Secondary)
}

func TestClassifyNoMatchIsUnclassified(t *testing.T) {
	c := newTestClassifier(1.0, defaultKeywords(), nil)

	result := c.Classify("일반 공지사항입니다", "행사 일정 안내")

	assert.Equal(t, Unclassified, result.Primary)
}

func TestClassifyThresholdBoundary(t *testing.T) {
	keywords := []CategoryKeyword{
		{Category: "청년", Keyword: "청년", Weight: 1.0},
	}

	// One text-source match scores exactly 1.0 (weight 1.0 × source 1.0).
	c := newTestClassifier(1.0, keywords, nil)
	result := c.Classify("", "청년 대상 사업")
	assert.Equal(t, "청년", result.Primary, "score exactly at threshold must qualify")

	c = newTestClassifier(1.01, keywords, nil)
	result = c.Classify("", "청년 대상 사업")
	assert.Equal(t, Unclassified, result.Primary, "score below threshold must not qualify")
}

func TestClassifyWeightMonotonicity(t *testing.T) {
	text := "소상공인 대상 바우처 사업"

	low := newTestClassifier(2.0, []CategoryKeyword{{Category: "소상공인", Keyword: "소상공인", Weight: 1.0}}, nil)
	high := newTestClassifier(2.0, []CategoryKeyword{{Category: "소상공인", Keyword: "소상공인", Weight: 3.0}}, nil)

	lowResult := low.Classify("", text)
	highResult := high.Classify("", text)

	// Raising the weight can only move a category from unqualified to
	// qualified, never the reverse.
	if lowResult.Primary == "소상공인" {
		assert.Equal(t, "소상공인", highResult.Primary)
	}

	assert.Equal(t, "소상공인", highResult.Primary)
}

func TestClassifyStructuredSourceWeighted(t *testing.T) {
	keywords := []CategoryKeyword{{Category: "중소기업", Keyword: "중소기업", Weight: 1.0}}

	// Structured-only source: the 1.2 source weight lifts a bare 1.0 match
	// over a threshold the text weight alone would miss.
	c := newTestClassifier(1.1, keywords, nil)

	structured := c.Classify("중소기업 해당", "")
	assert.Equal(t, "중소기업", structured.Primary)

	textOnly := c.Classify("", "중소기업 해당")
	assert.Equal(t, Unclassified, textOnly.Primary)
}

func TestClassifyMergeSplit(t *testing.T) {
	keywords := []CategoryKeyword{{Category: "청년", Keyword: "청년", Weight: 1.0}}

	// Both sources present: 0.7×(1.0×1.2×1.5 boost) + 0.3×0 = 1.26 with
	// positive context in the structured text only.
	c := newTestClassifier(1.2, keywords, nil)
	result := c.Classify("신청자격: 청년", "사업 개요 문서")

	require.Equal(t, "청년", result.Primary)
}

func TestClassifyInstitutionContextDiscarded(t *testing.T) {
	keywords := []CategoryKeyword{{Category: "중소기업", Keyword: "중소기업", Weight: 5.0}}
	c := newTestClassifier(1.0, keywords, nil)

	result := c.Classify("", "주관기관: 중소기업진흥공단")

	assert.Equal(t, Unclassified, result.Primary, "administering-institution mention must not classify")
}

func TestClassifyNegativeContextPenalized(t *testing.T) {
	keywords := []CategoryKeyword{{Category: "청년", Keyword: "청년", Weight: 1.0}}

	c := newTestClassifier(0.9, keywords, nil)

	qualified := c.Classify("", "청년 대상 사업입니다")
	assert.Equal(t, "청년", qualified.Primary)

	// Same keyword near an exclusion term scores half and falls below.
	penalized := c.Classify("", "청년 은 지원 제외 대상입니다")
	assert.Equal(t, Unclassified, penalized.Primary)
}

func TestClassifyPositiveContextBoosted(t *testing.T) {
	keywords := []CategoryKeyword{{Category: "청년", Keyword: "청년", Weight: 1.0}}

	// 1.0 × 1.5 boost = 1.5; bare mention scores 1.0.
	c := newTestClassifier(1.4, keywords, nil)

	boosted := c.Classify("", "신청자격: 청년 창업가")
	assert.Equal(t, "청년", boosted.Primary)

	bare := c.Classify("", "청년 이라는 단어가 있는 문서")
	assert.Equal(t, Unclassified, bare.Primary)
}

func TestClassifyIndustryReinforcesExistingCategory(t *testing.T) {
	keywords := []CategoryKeyword{{Category: "중소기업", Keyword: "중소기업", Weight: 1.0}}
	industry := []IndustryKeyword{{Keyword: "제조업", Category: "중소기업"}}

	// Base score 1.0 misses the 1.3 threshold; the industry hit adds 0.5.
	c := newTestClassifier(1.3, keywords, industry)

	reinforced := c.Classify("", "중소기업 과 제조업 분야")
	assert.Equal(t, "중소기업", reinforced.Primary)

	withoutIndustry := c.Classify("", "중소기업 관련 문서")
	assert.Equal(t, Unclassified, withoutIndustry.Primary)
}

func TestClassifyIndustryAloneDoesNotClassify(t *testing.T) {
	keywords := []CategoryKeyword{{Category: "중소기업", Keyword: "중소기업", Weight: 1.0}}
	industry := []IndustryKeyword{{Keyword: "제조업", Category: "중소기업"}}

	c := newTestClassifier(0.4, keywords, industry)

	result := c.Classify("", "제조업 현황 보고서")

	assert.Equal(t, Unclassified, result.Primary, "industry keywords must not form their own category")
}

func TestClassifySecondaryOrderedByScore(t *testing.T) {
	keywords := []CategoryKeyword{
		{Category: "청년", Keyword: "청년", Weight: 1.0},
		{Category: "소상공인", Keyword: "소상공인", Weight: 1.0},
	}
	c := newTestClassifier(0.5, keywords, nil)

	result := c.Classify("", "소상공인 과 소상공인 그리고 청년 모두 참여")

	require.Len(t, result.Secondary, 2)
	assert.Equal(t, "소상공인", result.Secondary[0])
	assert.Equal(t, "청년", result.Secondary[1])
	assert.Equal(t, "소상공인", result.Primary)
}

package exclude

import (
	"strings"
)

// Weighted keyword tiers for the content-relevance score. Primary terms
// identify a support program directly; the lower tiers corroborate.
var relevanceTiers = []struct {
	weight   float64
	keywords []string
}{
	{3.0, []string{"지원사업", "보조금", "지원금", "공모", "모집공고", "지원계획"}},
	{2.0, []string{"신청", "접수", "선정", "지원대상", "사업비", "지원내용", "신청자격"}},
	{2.0, []string{"백만원", "천만원", "억원", "지원금액", "국비", "자부담", "보조율"}},
	{1.0, []string{"컨설팅", "교육", "멘토링", "바우처", "사업화", "판로", "인증"}},
}

const minRelevantLength = 300

// Length-dependent normalized-score thresholds: short text that converted
// cleanly but says little must clear a higher bar than a long document.
var lengthThresholds = []struct {
	maxRunes  int
	threshold float64
}{
	{1000, 8.0},
	{5000, 4.0},
}

const longTextThreshold = 2.0

// RelevanceVerdict is the content filter's decision for one item.
type RelevanceVerdict struct {
	Score      float64 // raw weighted sum
	Normalized float64 // per thousand runes
	Qualified  bool
	Reason     string
}

// ScoreContent scores the combined text against the weighted keyword tiers
// and applies the length-dependent threshold. It catches attachments that
// convert successfully but contain no substantive support-program
// information.
func ScoreContent(text string) RelevanceVerdict {
	runes := len([]rune(text))
	if runes < minRelevantLength {
		return RelevanceVerdict{Reason: "추출된 텍스트가 너무 짧음"}
	}

	var score float64

	for _, tier := range relevanceTiers {
		for _, kw := range tier.keywords {
			score += float64(strings.Count(text, kw)) * tier.weight
		}
	}

	normalized := score / (float64(runes) / 1000.0)

	threshold := longTextThreshold

	for _, lt := range lengthThresholds {
		if runes < lt.maxRunes {
			threshold = lt.threshold

			break
		}
	}

	if normalized < threshold {
		return RelevanceVerdict{
			Score:      score,
			Normalized: normalized,
			Reason:     "지원사업 관련 내용 부족",
		}
	}

	return RelevanceVerdict{Score: score, Normalized: normalized, Qualified: true}
}

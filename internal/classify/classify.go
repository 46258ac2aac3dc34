// Package classify assigns target-audience categories to announcements
// using a dual-source weighted keyword scorer: structured extraction fields
// on one side, combined attachment text on the other.
package classify

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bizscrape/grant-pipeline/internal/observability"
)

// Unclassified is reported when no category reaches the qualification
// threshold.
const Unclassified = "미분류"

// CategoryKeyword configures one scoring term for a category. Synonyms
// match with the same weight.
type CategoryKeyword struct {
	Category string
	Keyword  string
	Synonyms []string
	Weight   float64
}

// IndustryKeyword reinforces its tagged category when that category
// already has an audience-keyword match; it never forms a category of its
// own.
type IndustryKeyword struct {
	Keyword  string
	Category string
}

// Result is the classification outcome for one announcement.
type Result struct {
	Primary    string
	Secondary  []string
	Confidence float64
	Matched    []string
}

const (
	structuredSourceWeight = 1.2
	textSourceWeight       = 1.0

	mergeStructuredShare = 0.7
	mergeTextShare       = 0.3

	contextWindow = 40

	positiveBoost       = 1.5
	negativePenalty     = 0.5
	industryReinforceBy = 0.5
)

// Context word lists for the adjustment window around each match.
var (
	positiveContext    = []string{"지원대상", "신청자격", "신청대상", "대상자", "지원 대상", "모집대상", "가능"}
	negativeContext    = []string{"제외", "불가", "해당없음", "지원 제외", "신청불가", "미해당"}
	institutionContext = []string{"주관기관", "시행기관", "운영기관", "주최", "전담기관", "수행기관"}
)

// Classifier scores announcements against an immutable keyword snapshot.
type Classifier struct {
	keywords  []CategoryKeyword
	industry  []IndustryKeyword
	threshold float64
	logger    *zerolog.Logger
}

// New builds a classifier with the given qualification threshold.
func New(keywords []CategoryKeyword, industry []IndustryKeyword, threshold float64, logger *zerolog.Logger) *Classifier {
	return &Classifier{keywords: keywords, industry: industry, threshold: threshold, logger: logger}
}

// Classify scores the structured-field text and the combined attachment
// text independently, merges them 0.7/0.3 (or full weight when only one
// source is present) and reports every category at or above the threshold.
func (c *Classifier) Classify(structured, combined string) Result {
	hasStructured := strings.TrimSpace(structured) != ""
	hasText := strings.TrimSpace(combined) != ""

	if !hasStructured && !hasText {
		return Result{Primary: Unclassified}
	}

	structuredScores, structuredMatches := c.scoreSource(structured, structuredSourceWeight)
	textScores, textMatches := c.scoreSource(combined, textSourceWeight)

	merged := make(map[string]float64)

	for category := range union(structuredScores, textScores) {
		switch {
		case hasStructured && hasText:
			merged[category] = mergeStructuredShare*structuredScores[category] + mergeTextShare*textScores[category]
		case hasStructured:
			merged[category] = structuredScores[category]
		default:
			merged[category] = textScores[category]
		}
	}

	c.reinforceIndustry(structured+combined, merged)

	qualified := make([]string, 0, len(merged))

	for category, score := range merged {
		if score >= c.threshold {
			qualified = append(qualified, category)
		}
	}

	if len(qualified) == 0 {
		observability.ClassificationsTotal.WithLabelValues(Unclassified).Inc()

		return Result{Primary: Unclassified}
	}

	sort.Slice(qualified, func(i, j int) bool {
		if merged[qualified[i]] != merged[qualified[j]] {
			return merged[qualified[i]] > merged[qualified[j]]
		}

		return qualified[i] < qualified[j]
	})

	primary := qualified[0]
	observability.ClassificationsTotal.WithLabelValues(primary).Inc()

	return Result{
		Primary:    primary,
		Secondary:  qualified,
		Confidence: confidence(merged[primary], c.threshold),
		Matched:    dedupeSorted(append(structuredMatches[primary], textMatches[primary]...)),
	}
}

// scoreSource matches every configured keyword and synonym in the text,
// adjusting each hit by its surrounding context window.
func (c *Classifier) scoreSource(text string, sourceWeight float64) (map[string]float64, map[string][]string) {
	scores := make(map[string]float64)
	matches := make(map[string][]string)

	if strings.TrimSpace(text) == "" {
		return scores, matches
	}

	runes := []rune(text)

	for _, kw := range c.keywords {
		terms := append([]string{kw.Keyword}, kw.Synonyms...)

		for _, term := range terms {
			for _, idx := range allIndices(text, term) {
				adjust, discard := contextAdjustment(runes, runeIndex(text, idx), len([]rune(term)))
				if discard {
					continue
				}

				scores[kw.Category] += kw.Weight * adjust * sourceWeight
				matches[kw.Category] = append(matches[kw.Category], term)
			}
		}
	}

	return scores, matches
}

// contextAdjustment inspects the window around a match. Institution
// context means the keyword names an administering body, not a
// beneficiary, and the match is discarded entirely.
func contextAdjustment(runes []rune, start, length int) (float64, bool) {
	lo := start - contextWindow
	if lo < 0 {
		lo = 0
	}

	hi := start + length + contextWindow
	if hi > len(runes) {
		hi = len(runes)
	}

	window := string(runes[lo:hi])

	for _, term := range institutionContext {
		if strings.Contains(window, term) {
			return 0, true
		}
	}

	adjust := 1.0

	for _, term := range negativeContext {
		if strings.Contains(window, term) {
			adjust = negativePenalty

			break
		}
	}

	for _, term := range positiveContext {
		if strings.Contains(window, term) {
			adjust = positiveBoost

			break
		}
	}

	return adjust, false
}

// reinforceIndustry adds a bonus to a category for each industry-sector
// hit, but only when the category already scored through audience
// keywords.
func (c *Classifier) reinforceIndustry(text string, merged map[string]float64) {
	for _, kw := range c.industry {
		if merged[kw.Category] <= 0 {
			continue
		}

		if strings.Contains(text, kw.Keyword) {
			merged[kw.Category] += industryReinforceBy
		}
	}
}

func confidence(score, threshold float64) float64 {
	if threshold <= 0 {
		return 1.0
	}

	conf := score / (threshold * 2)
	if conf > 1.0 {
		conf = 1.0
	}

	return conf
}

func allIndices(text, term string) []int {
	if term == "" {
		return nil
	}

	var indices []int

	for offset := 0; ; {
		idx := strings.Index(text[offset:], term)
		if idx < 0 {
			break
		}

		indices = append(indices, offset+idx)
		offset += idx + len(term)
	}

	return indices
}

// runeIndex converts a byte offset into a rune offset.
func runeIndex(text string, byteIdx int) int {
	return len([]rune(text[:byteIdx]))
}

func union(a, b map[string]float64) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))

	for k := range a {
		out[k] = struct{}{}
	}

	for k := range b {
		out[k] = struct{}{}
	}

	return out
}

func dedupeSorted(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))

	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}

		seen[t] = struct{}{}
		out = append(out, t)
	}

	sort.Strings(out)

	return out
}

// Package exclude implements the two exclusion filters: the cheap
// folder-name keyword check that runs before any content is read, and the
// weighted content-relevance filter that rejects converted text carrying no
// substantive support-program information.
package exclude

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bizscrape/grant-pipeline/internal/observability"
)

// Keyword is one configured exclusion term.
type Keyword struct {
	Keyword     string
	Description string
}

// Match records which keyword excluded a folder and why.
type Match struct {
	Keyword string
	Reason  string
}

// UsageRecorder increments the effectiveness counter for a matched
// keyword. Failures are non-fatal to the pipeline.
type UsageRecorder interface {
	IncrementKeywordUsage(ctx context.Context, keyword string) error
}

// Filter tests folder names against an immutable keyword snapshot, loaded
// once per run and shared by all workers.
type Filter struct {
	keywords []Keyword
	usage    UsageRecorder
	logger   *zerolog.Logger
}

// NewFilter builds a filter over the given snapshot.
func NewFilter(keywords []Keyword, usage UsageRecorder, logger *zerolog.Logger) *Filter {
	return &Filter{keywords: keywords, usage: usage, logger: logger}
}

// Match tests the folder name case-insensitively against every keyword.
// Any substring hit excludes the folder. The matched keyword's usage
// counter is incremented best-effort.
func (f *Filter) Match(ctx context.Context, folderName string) (*Match, bool) {
	lowered := strings.ToLower(folderName)

	for _, kw := range f.keywords {
		if !strings.Contains(lowered, strings.ToLower(kw.Keyword)) {
			continue
		}

		reason := fmt.Sprintf("폴더명에 제외 키워드 '%s' 포함", kw.Keyword)
		if kw.Description != "" {
			reason = fmt.Sprintf("%s (%s)", reason, kw.Description)
		}

		f.logger.Info().Str("folder", folderName).Str("keyword", kw.Keyword).Msg("folder excluded by name keyword")
		observability.ExclusionsTotal.WithLabelValues("name_keyword").Inc()

		if f.usage != nil {
			if err := f.usage.IncrementKeywordUsage(ctx, kw.Keyword); err != nil {
				f.logger.Warn().Err(err).Str("keyword", kw.Keyword).Msg("failed to record keyword usage")
			}
		}

		return &Match{Keyword: kw.Keyword, Reason: reason}, true
	}

	return nil, false
}

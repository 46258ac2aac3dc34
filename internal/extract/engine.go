// Package extract implements the conditional two-pass LLM extraction
// engine: Pass 1 over the primary artifact, Pass 2 over combined
// attachment text when Pass 1 found no usable target audience, and
// field-level reconciliation of the two passes.
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bizscrape/grant-pipeline/internal/domain"
	"github.com/bizscrape/grant-pipeline/internal/llm"
	"github.com/bizscrape/grant-pipeline/internal/observability"
)

// Pass-2 trigger policies. PolicyInvalid runs Pass 2 whenever Pass 1
// produced no valid target; PolicyGated additionally requires the
// content-relevance filter to have qualified the item as a support
// program.
const (
	PolicyInvalid = "invalid"
	PolicyGated   = "gated"
)

// supportMarker in the Pass-1 title short-circuits the engine: the item is
// a support program and the remaining LLM budget is saved.
const supportMarker = "지원"

// Outcome is the engine's final verdict for one item.
type Outcome struct {
	Fields    domain.ExtractedFields
	Status    string
	Pass1Ran  bool
	Pass2Ran  bool
	EarlyExit bool
}

// Engine runs the two-pass extraction. One instance per worker.
type Engine struct {
	client llm.Client
	policy string
	logger *zerolog.Logger
}

// NewEngine builds an engine with the given Pass-2 policy.
func NewEngine(client llm.Client, policy string, logger *zerolog.Logger) *Engine {
	if policy != PolicyGated {
		policy = PolicyInvalid
	}

	return &Engine{client: client, policy: policy, logger: logger}
}

// Extract runs Pass 1 on the primary text, conditionally Pass 2 on the
// combined attachment text, and reconciles. LLM failures degrade the
// affected pass to "no result" rather than propagating.
func (e *Engine) Extract(ctx context.Context, primary, combined string, retrievalContext []string, contentQualified bool) *Outcome {
	outcome := &Outcome{Status: domain.StatusCompleted}

	var pass1, pass2 *domain.ExtractedFields

	if strings.TrimSpace(primary) != "" {
		pass1 = e.runPass(ctx, "1", primary, retrievalContext)
		outcome.Pass1Ran = true

		// Cost-saving shortcut: a support-program marker in the title means
		// the announcement is in scope regardless of the target field.
		if pass1 != nil && pass1.Title.Valid && strings.Contains(pass1.Title.Value, supportMarker) {
			outcome.Fields = *pass1
			outcome.Status = domain.StatusSuccess
			outcome.EarlyExit = true

			return outcome
		}

		if pass1.Valid() {
			outcome.Fields = *pass1
			outcome.Status = domain.StatusSuccess

			return outcome
		}
	}

	if e.shouldRunPass2(combined, contentQualified) {
		pass2 = e.runPass(ctx, "2", combined, nil)
		outcome.Pass2Ran = true
	}

	outcome.Fields = reconcile(pass1, pass2)

	if outcome.Fields.Target.Valid {
		outcome.Status = domain.StatusSuccess
	}

	return outcome
}

func (e *Engine) shouldRunPass2(combined string, contentQualified bool) bool {
	if strings.TrimSpace(combined) == "" {
		return false
	}

	if e.policy == PolicyGated && !contentQualified {
		return false
	}

	return true
}

func (e *Engine) runPass(ctx context.Context, pass, text string, retrievalContext []string) *domain.ExtractedFields {
	started := time.Now()

	result, err := e.client.Analyze(ctx, text, retrievalContext)

	observability.ExtractionDuration.WithLabelValues(pass).Observe(time.Since(started).Seconds())

	if err != nil {
		e.logger.Warn().Err(err).Str("pass", pass).Msg("extraction pass failed, degrading to no result")
		observability.ExtractionPasses.WithLabelValues(pass, "error").Inc()

		return nil
	}

	if result == nil || result.Fields == nil {
		observability.ExtractionPasses.WithLabelValues(pass, "empty").Inc()

		return nil
	}

	observability.ExtractionPasses.WithLabelValues(pass, "ok").Inc()

	return result.Fields
}

// reconcile merges two passes field by field: a valid Pass-1 value wins,
// then a valid Pass-2 value, then absent.
func reconcile(pass1, pass2 *domain.ExtractedFields) domain.ExtractedFields {
	if pass1 == nil {
		pass1 = &domain.ExtractedFields{}
	}

	if pass2 == nil {
		pass2 = &domain.ExtractedFields{}
	}

	return domain.ExtractedFields{
		Title:            bestValue(pass1.Title, pass2.Title),
		Target:           bestValue(pass1.Target, pass2.Target),
		TargetType:       bestValue(pass1.TargetType, pass2.TargetType),
		Amount:           bestValue(pass1.Amount, pass2.Amount),
		Period:           bestValue(pass1.Period, pass2.Period),
		Schedule:         bestValue(pass1.Schedule, pass2.Schedule),
		Content:          bestValue(pass1.Content, pass2.Content),
		AnnouncementDate: bestValue(pass1.AnnouncementDate, pass2.AnnouncementDate),
		SourceURL:        bestValue(pass1.SourceURL, pass2.SourceURL),
	}
}

func bestValue(first, second domain.Field) domain.Field {
	if first.Valid {
		return first
	}

	if second.Valid {
		return second
	}

	return domain.None()
}

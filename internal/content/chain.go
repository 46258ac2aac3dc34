// Package content assembles the textual payload for one announcement
// folder: the normalized primary artifact plus attachment text produced by
// ranked per-format converter chains with a quality gate and an
// encoding-recovery retry for mojibake-prone formats.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/bizscrape/grant-pipeline/internal/observability"
)

// Converter turns one attachment file into text. PDF/HWP/HWPX/image
// decoders are external collaborators injected into the registry; HTML and
// plain-text converters ship with this package.
type Converter interface {
	Name() string
	Convert(ctx context.Context, path string) (string, error)
}

// Step pairs a converter with its validation policy. Recover enables the
// encoding-recovery retry when the output fails the script-ratio check.
type Step struct {
	Converter Converter
	Recover   bool
}

// ErrNoUsableText is returned when every converter in a chain failed the
// quality gate for a file.
var ErrNoUsableText = errors.New("no converter produced usable text")

const (
	minTextLength = 80

	// Letters must be at least this much Hangul/Latin/Han to pass.
	scriptRatioFloor = 0.60

	// Above this share of unrelated-script letters the text is treated as a
	// mis-decoded encoding, not genuine foreign-language content.
	foreignRatioCeil = 0.01
)

// Chain is the ranked converter list for one format family.
type Chain struct {
	Family string
	Steps  []Step
	logger *zerolog.Logger
}

// NewChain builds a chain for a format family.
func NewChain(family string, logger *zerolog.Logger, steps ...Step) *Chain {
	return &Chain{Family: family, Steps: steps, logger: logger}
}

// Run tries each converter in order: convert, validate, continue on
// failure. A converter error or empty output moves to the next step; a
// quality-gate failure triggers encoding recovery when the step allows it,
// then falls through.
func (c *Chain) Run(ctx context.Context, path string) (string, error) {
	for _, step := range c.Steps {
		text, err := step.Converter.Convert(ctx, path)
		if err != nil {
			observability.ConversionsTotal.WithLabelValues(c.Family, step.Converter.Name(), "error").Inc()
			c.logger.Debug().Err(err).Str("converter", step.Converter.Name()).Str("file", path).Msg("converter failed")

			continue
		}

		if strings.TrimSpace(text) == "" {
			observability.ConversionsTotal.WithLabelValues(c.Family, step.Converter.Name(), "empty").Inc()

			continue
		}

		if gateErr := validateText(text); gateErr == nil {
			observability.ConversionsTotal.WithLabelValues(c.Family, step.Converter.Name(), "ok").Inc()

			return text, nil
		} else if step.Recover {
			if recovered, ok := recoverEncoding([]byte(text)); ok {
				observability.ConversionsTotal.WithLabelValues(c.Family, step.Converter.Name(), "recovered").Inc()

				return recovered, nil
			}
		}

		observability.ConversionsTotal.WithLabelValues(c.Family, step.Converter.Name(), "rejected").Inc()
		c.logger.Debug().Str("converter", step.Converter.Name()).Str("file", path).Msg("text rejected by quality gate")
	}

	return "", fmt.Errorf("%w: %s", ErrNoUsableText, path)
}

// validateText is the quality gate: minimum length, dominant-script floor
// and the unrelated-script mojibake signal.
func validateText(text string) error {
	if len([]rune(text)) < minTextLength {
		return fmt.Errorf("text too short: %d runes", len([]rune(text)))
	}

	related, foreign, letters := scriptCounts(text)
	if letters == 0 {
		return errors.New("no letters in text")
	}

	if ratio := float64(related) / float64(letters); ratio < scriptRatioFloor {
		return fmt.Errorf("dominant-script ratio %.2f below floor", ratio)
	}

	if ratio := float64(foreign) / float64(letters); ratio > foreignRatioCeil {
		return fmt.Errorf("unrelated-script ratio %.2f suggests mis-decoded encoding", ratio)
	}

	return nil
}

// scriptCounts tallies letters by script. Hangul, Latin and Han count as
// related (Korean government documents mix all three); anything else
// counts as foreign.
func scriptCounts(text string) (related, foreign, letters int) {
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}

		letters++

		if unicode.Is(unicode.Hangul, r) || unicode.Is(unicode.Latin, r) || unicode.Is(unicode.Han, r) {
			related++
		} else {
			foreign++
		}
	}

	return related, foreign, letters
}

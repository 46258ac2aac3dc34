package content

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// koreanBody is long enough to clear the minimum-length gate.
var koreanBody = strings.Repeat("소상공인 경영안정 지원사업 공고문 본문입니다. ", 8)

func fixedConverter(name, text string, err error) Converter {
	return FuncConverter{
		ConverterName: name,
		Fn: func(context.Context, string) (string, error) {
			return text, err
		},
	}
}

func countingConverter(name, text string, calls *int) Converter {
	return FuncConverter{
		ConverterName: name,
		Fn: func(context.Context, string) (string, error) {
			*calls++

			return text, nil
		},
	}
}

func testChain(steps ...Step) *Chain {
	logger := zerolog.Nop()

	return NewChain("test", &logger, steps...)
}

func TestChainFirstConverterWins(t *testing.T) {
	second := 0
	chain := testChain(
		Step{Converter: fixedConverter("first", koreanBody, nil)},
		Step{Converter: countingConverter("second", koreanBody, &second)},
	)

	text, err := chain.Run(context.Background(), "x")

	require.NoError(t, err)
	assert.Equal(t, koreanBody, text)
	assert.Zero(t, second, "later converters must not run once one succeeds")
}

func TestChainFallsThroughOnError(t *testing.T) {
	chain := testChain(
		Step{Converter: fixedConverter("broken", "", errors.New("decoder crashed"))},
		Step{Converter: fixedConverter("fallback", koreanBody, nil)},
	)

	text, err := chain.Run(context.Background(), "x")

	require.NoError(t, err)
	assert.Equal(t, koreanBody, text)
}

func TestChainFallsThroughOnEmptyOutput(t *testing.T) {
	chain := testChain(
		Step{Converter: fixedConverter("empty", "   \n ", nil)},
		Step{Converter: fixedConverter("fallback", koreanBody, nil)},
	)

	text, err := chain.Run(context.Background(), "x")

	require.NoError(t, err)
	assert.Equal(t, koreanBody, text)
}

func TestChainFallsThroughOnGateRejection(t *testing.T) {
	chain := testChain(
		Step{Converter: fixedConverter("short", "너무 짧은 출력", nil)},
		Step{Converter: fixedConverter("fallback", koreanBody, nil)},
	)

	text, err := chain.Run(context.Background(), "x")

	require.NoError(t, err)
	assert.Equal(t, koreanBody, text)
}

func TestChainAllStepsFail(t *testing.T) {
	chain := testChain(
		Step{Converter: fixedConverter("broken", "", errors.New("boom"))},
		Step{Converter: fixedConverter("short", "짧음", nil)},
	)

	_, err := chain.Run(context.Background(), "x")

	assert.ErrorIs(t, err, ErrNoUsableText)
}

func TestChainRecoversMisdecodedKorean(t *testing.T) {
	encoded, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), []byte(koreanBody))
	require.NoError(t, err)

	// The converter hands back raw EUC-KR bytes as if they were UTF-8.
	chain := testChain(
		Step{Converter: fixedConverter("raw", string(encoded), nil), Recover: true},
	)

	text, err := chain.Run(context.Background(), "x")

	require.NoError(t, err)
	assert.Equal(t, koreanBody, text)
}

func TestChainRecoveryExhaustedSkipsFile(t *testing.T) {
	// Unrelated-script output whose bytes decode to gate-failing text under
	// every alternate-encoding hypothesis.
	mojibake := strings.Repeat("Ð", 60)

	chain := testChain(
		Step{Converter: fixedConverter("raw", mojibake, nil), Recover: true},
	)

	_, err := chain.Run(context.Background(), "x")

	assert.ErrorIs(t, err, ErrNoUsableText)
}

func TestValidateText(t *testing.T) {
	tests := []struct {
		name string
		text string
		ok   bool
	}{
		{"korean body", koreanBody, true},
		{"latin body", strings.Repeat("small business support program notice ", 5), true},
		{"mixed korean latin han", strings.Repeat("중소기업 SME 支援 사업 안내 ", 10), true},
		{"too short", "지원사업", false},
		{"no letters", strings.Repeat("1234567890 !@# ", 10), false},
		{"mostly foreign script", strings.Repeat("программа поддержки бизнеса ", 5), false},
		{"mojibake tail", koreanBody + strings.Repeat("щф", 40), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateText(tt.text)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestScriptCountsMixedDocument(t *testing.T) {
	related, foreign, letters := scriptCounts("한국 business 支援 пример 123")

	assert.Equal(t, 6, foreign, "cyrillic letters count as foreign")
	assert.Equal(t, letters-foreign, related)
}

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bizscrape/grant-pipeline/internal/domain"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "already canonical", input: "2024-03-05", expected: "2024-03-05"},
		{name: "dot separated", input: "2024.3.5", expected: "2024-03-05"},
		{name: "dot separated zero padded", input: "2024.03.05", expected: "2024-03-05"},
		{name: "dot separated trailing dot", input: "2024.03.05.", expected: "2024-03-05"},
		{name: "compact eight digits", input: "20240305", expected: "2024-03-05"},
		{name: "slash separated", input: "2024/3/5", expected: "2024-03-05"},
		{name: "korean units", input: "2024년 3월 5일", expected: "2024-03-05"},
		{name: "korean units no spaces", input: "2024년3월5일", expected: "2024-03-05"},
		{name: "korean units embedded", input: "공고일: 2024년 3월 5일 (화)", expected: "2024-03-05"},
		{name: "eight digits embedded", input: "공고 제20240305호", expected: "2024-03-05"},
		{name: "empty", input: "", expected: domain.DateUnparseable},
		{name: "gibberish", input: "상시 모집", expected: domain.DateUnparseable},
		{name: "invalid month", input: "2024.13.05", expected: domain.DateUnparseable},
		{name: "invalid day", input: "20240332", expected: domain.DateUnparseable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeDate(tt.input))
		})
	}
}

func TestNormalizeDateNeverPanics(t *testing.T) {
	inputs := []string{"0000", "년월일", "9999.99.99", "....", "2024년", "1234567"}

	for _, input := range inputs {
		assert.NotPanics(t, func() { NormalizeDate(input) })
	}
}

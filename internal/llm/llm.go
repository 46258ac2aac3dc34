// Package llm provides the extraction client for the announcement pipeline.
// It talks to any OpenAI-compatible endpoint; in production that is an
// Ollama server exposing /v1.
package llm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/bizscrape/grant-pipeline/internal/config"
	"github.com/bizscrape/grant-pipeline/internal/domain"
)

// Result carries one extraction pass output plus the prompt that produced
// it. Fields is nil when the model returned nothing usable.
type Result struct {
	Fields *domain.ExtractedFields
	Prompt string
}

// Client is the extraction collaborator contract. Analyze may return a nil
// Fields without an error; callers treat both nil and error as "no result
// for this pass".
type Client interface {
	Analyze(ctx context.Context, text string, retrievalContext []string) (*Result, error)
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

const mockAPIKey = "mock"

// New selects the real client or the offline mock based on the API key.
func New(cfg *config.Config, logger *zerolog.Logger) Client {
	if cfg.LLMAPIKey == "" || cfg.LLMAPIKey == mockAPIKey {
		return &mockClient{}
	}

	return NewOpenAI(cfg, logger)
}

type mockClient struct{}

const mockEmbeddingDimensions = 768

func (c *mockClient) Analyze(_ context.Context, text string, _ []string) (*Result, error) {
	if text == "" {
		return &Result{Prompt: "mock"}, nil
	}

	return &Result{
		Fields: &domain.ExtractedFields{
			Title:            domain.Some("모의 지원사업 공고"),
			Target:           domain.Some("중소기업"),
			TargetType:       domain.Some("기업"),
			Amount:           domain.Some("최대 1억원"),
			Period:           domain.Some("2024-01-01 ~ 2024-12-31"),
			Schedule:         domain.Some("연중 상시"),
			Content:          domain.Some("모의 추출 결과입니다."),
			AnnouncementDate: domain.Some("2024.01.01"),
		},
		Prompt: "mock",
	}, nil
}

func (c *mockClient) GetEmbedding(_ context.Context, _ string) ([]float32, error) {
	emb := make([]float32, mockEmbeddingDimensions)
	for i := range emb {
		emb[i] = 0.1
	}

	return emb, nil
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/bizscrape/grant-pipeline/internal/config"
	"github.com/bizscrape/grant-pipeline/internal/domain"
)

type openaiClient struct {
	cfg         *config.Config
	client      *openai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter

	// Circuit breaker state
	consecutiveFailures int
	circuitOpenUntil    time.Time
	mu                  sync.Mutex
}

const (
	circuitBreakerThreshold = 5
	circuitBreakerTimeout   = 1 * time.Minute

	rateLimiterBurst = 5
)

// NewOpenAI builds a client against the configured OpenAI-compatible
// endpoint. Each pipeline worker constructs its own instance.
func NewOpenAI(cfg *config.Config, logger *zerolog.Logger) Client {
	clientCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	clientCfg.BaseURL = cfg.LLMBaseURL

	return &openaiClient{
		cfg:         cfg,
		client:      openai.NewClientWithConfig(clientCfg),
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(cfg.RateLimitRPS)), rateLimiterBurst),
	}
}

func (c *openaiClient) checkCircuit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Now().Before(c.circuitOpenUntil) {
		return fmt.Errorf("circuit breaker is open until %v", c.circuitOpenUntil)
	}

	return nil
}

func (c *openaiClient) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveFailures = 0
}

func (c *openaiClient) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveFailures++

	if c.consecutiveFailures >= circuitBreakerThreshold {
		c.circuitOpenUntil = time.Now().Add(circuitBreakerTimeout)
		c.logger.Warn().
			Int("consecutive_failures", c.consecutiveFailures).
			Time("open_until", c.circuitOpenUntil).
			Msg("Circuit breaker opened")
	}
}

// extractionResponse mirrors the JSON object the model is instructed to
// return. Missing fields and sentinel strings both collapse to absent.
type extractionResponse struct {
	Title            string `json:"title"`
	Target           string `json:"target"`
	TargetType       string `json:"target_type"`
	Amount           string `json:"amount"`
	Period           string `json:"period"`
	Schedule         string `json:"schedule"`
	Content          string `json:"content"`
	AnnouncementDate string `json:"announcement_date"`
	SourceURL        string `json:"source_url"`
}

func (c *openaiClient) Analyze(ctx context.Context, text string, retrievalContext []string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return &Result{}, nil
	}

	if err := c.checkCircuit(); err != nil {
		return nil, err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	prompt := buildExtractionPrompt(text, retrievalContext)

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.LLMTimeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: c.cfg.LLMModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		c.recordFailure()

		return nil, fmt.Errorf("chat completion error: %w", err)
	}

	c.recordSuccess()

	if len(resp.Choices) == 0 {
		return &Result{Prompt: prompt}, nil
	}

	fields, err := parseExtraction(resp.Choices[0].Message.Content)
	if err != nil {
		c.logger.Warn().Err(err).Msg("malformed extraction response")

		return &Result{Prompt: prompt}, nil
	}

	return &Result{Fields: fields, Prompt: prompt}, nil
}

func parseExtraction(content string) (*domain.ExtractedFields, error) {
	// Some models wrap the object in a code fence despite JSON mode.
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var resp extractionResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &resp); err != nil {
		return nil, fmt.Errorf("unmarshal extraction response: %w", err)
	}

	return &domain.ExtractedFields{
		Title:            domain.Some(strings.TrimSpace(resp.Title)),
		Target:           domain.Some(strings.TrimSpace(resp.Target)),
		TargetType:       domain.Some(strings.TrimSpace(resp.TargetType)),
		Amount:           domain.Some(strings.TrimSpace(resp.Amount)),
		Period:           domain.Some(strings.TrimSpace(resp.Period)),
		Schedule:         domain.Some(strings.TrimSpace(resp.Schedule)),
		Content:          domain.Some(strings.TrimSpace(resp.Content)),
		AnnouncementDate: domain.Some(strings.TrimSpace(resp.AnnouncementDate)),
		SourceURL:        domain.Some(strings.TrimSpace(resp.SourceURL)),
	}, nil
}

func (c *openaiClient) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if err := c.checkCircuit(); err != nil {
		return nil, err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.LLMTimeout)
	defer cancel()

	resp, err := c.client.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
	})
	if err != nil {
		c.recordFailure()

		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	c.recordSuccess()

	return resp.Data[0].Embedding, nil
}

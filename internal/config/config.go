package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`

	// LLM endpoint (OpenAI-compatible; Ollama serves /v1 natively).
	// An API key of "mock" selects the offline mock client.
	LLMBaseURL   string        `env:"LLM_BASE_URL" envDefault:"http://localhost:11434/v1"`
	LLMAPIKey    string        `env:"LLM_API_KEY" envDefault:"ollama"`
	LLMModel     string        `env:"LLM_MODEL" envDefault:"llama3.1"`
	LLMTimeout   time.Duration `env:"LLM_TIMEOUT" envDefault:"120s"`
	RateLimitRPS int           `env:"RATE_LIMIT_RPS" envDefault:"1"`

	EmbeddingModel   string `env:"EMBEDDING_MODEL" envDefault:"nomic-embed-text"`
	RetrievalEnabled bool   `env:"RETRIEVAL_ENABLED" envDefault:"false"`
	SimilarityTopK   int    `env:"SIMILARITY_TOP_K" envDefault:"3"`

	WorkerCount       int     `env:"WORKER_COUNT" envDefault:"3"`
	Pass2Policy       string  `env:"PASS2_POLICY" envDefault:"invalid"`
	ClassifyThreshold float64 `env:"CLASSIFY_THRESHOLD" envDefault:"3.0"`

	SiteRoot  string `env:"SITE_ROOT"`
	SiteCode  string `env:"SITE_CODE"`
	Recursive bool   `env:"RECURSIVE" envDefault:"false"`

	Force       bool `env:"FORCE" envDefault:"false"`
	AttachForce bool `env:"ATTACH_FORCE" envDefault:"false"`

	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"2"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

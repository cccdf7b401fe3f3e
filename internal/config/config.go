package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"refdesk-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// Chunking
	ChunkMaxTokens     int `envconfig:"CHUNK_MAX_TOKENS" default:"120"`
	ChunkOverlapTokens int `envconfig:"CHUNK_OVERLAP_TOKENS" default:"20"`

	// Retrieval scoring
	BM25K1              float64 `envconfig:"BM25_K1" default:"1.5"`
	BM25B               float64 `envconfig:"BM25_B" default:"0.75"`
	FusionAlpha         float64 `envconfig:"FUSION_ALPHA" default:"0.5"`
	TopK                int     `envconfig:"TOP_K" default:"5"`
	CandidateMultiplier int     `envconfig:"CANDIDATE_MULTIPLIER" default:"3"`
	AmbiguityGap        float64 `envconfig:"AMBIGUITY_GAP" default:"0.05"`
	RemoveStopWords     bool    `envconfig:"REMOVE_STOP_WORDS" default:"false"`

	// Answer generation
	AnswerTimeout       time.Duration `envconfig:"ANSWER_TIMEOUT" default:"30s"`
	ConfidenceThreshold float64       `envconfig:"CONFIDENCE_THRESHOLD" default:"0.35"`

	// Background indexing
	WorkerPollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"5s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("REFDESK", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate rejects retrieval settings that would corrupt indexing or
// ranking before any document is touched.
func (c *Config) Validate() error {
	if c.ChunkMaxTokens <= 0 {
		return fmt.Errorf("CHUNK_MAX_TOKENS must be positive, got %d", c.ChunkMaxTokens)
	}
	if c.ChunkOverlapTokens < 0 {
		return fmt.Errorf("CHUNK_OVERLAP_TOKENS cannot be negative, got %d", c.ChunkOverlapTokens)
	}
	if c.ChunkOverlapTokens >= c.ChunkMaxTokens {
		return fmt.Errorf("CHUNK_OVERLAP_TOKENS (%d) must be strictly less than CHUNK_MAX_TOKENS (%d)",
			c.ChunkOverlapTokens, c.ChunkMaxTokens)
	}
	if c.FusionAlpha < 0 || c.FusionAlpha > 1 {
		return fmt.Errorf("FUSION_ALPHA must be in [0,1], got %v", c.FusionAlpha)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.TopK)
	}
	if c.CandidateMultiplier < 1 {
		return fmt.Errorf("CANDIDATE_MULTIPLIER must be at least 1, got %d", c.CandidateMultiplier)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be in [0,1], got %v", c.ConfidenceThreshold)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

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

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	CompletionModel string `envconfig:"COMPLETION_MODEL" default:"gpt-3.5-turbo"`

	// Pipeline knobs
	TopK              int           `envconfig:"TOP_K" default:"5"`
	MaxContextChars   int           `envconfig:"MAX_CONTEXT_CHARS" default:"6000"`
	LeakPolicy        string        `envconfig:"LEAK_POLICY" default:"regenerate"`
	MinFragmentLength int           `envconfig:"MIN_FRAGMENT_LENGTH" default:"20"`
	GenerationTimeout time.Duration `envconfig:"GENERATION_TIMEOUT" default:"2s"`

	SnapshotRefreshInterval time.Duration `envconfig:"SNAPSHOT_REFRESH_INTERVAL" default:"30s"`

	// Violation audit archive (S3-compatible, optional)
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"askbase-audit"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Comma-separated API keys accepted by the chat endpoint
	APIKeys []string `envconfig:"API_KEYS"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("ASKBASE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
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

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

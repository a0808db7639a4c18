// Package config loads server configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the server binary needs. An empty OpenAIAPIKey
// disables the external service; validation and board insights then use
// their local fallbacks.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	// StorePath selects the sqlite store; empty keeps state in memory.
	StorePath string `env:"STORE_PATH"`

	// NATSURL selects the NATS change notifier; empty uses the in-process hub.
	NATSURL string `env:"NATS_URL"`

	RateLimitCapacity int           `env:"RATE_LIMIT_CAPACITY" envDefault:"10"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW"   envDefault:"60s"`

	AutoplayInterval time.Duration `env:"AUTOPLAY_INTERVAL" envDefault:"2s"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

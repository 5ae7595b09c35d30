// Package config contains the configuration of the co-pilot service.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the service configuration. Environment variables override
// command-line flags.
type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseURI   string `env:"DATABASE_URI"`
	RedisAddress  string `env:"REDIS_ADDRESS"`
	AdvisorAPIKey string `env:"ADVISOR_API_KEY"`
	AdvisorAPIURL string `env:"ADVISOR_API_URL"`
	AuthSecret    string `env:"AUTH_SECRET"`
}

// Parse reads the configuration from command-line flags and environment variables.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envRedisAddress := cfg.RedisAddress
	envAdvisorKey := cfg.AdvisorAPIKey
	envAdvisorURL := cfg.AdvisorAPIURL
	envAuthSecret := cfg.AuthSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RedisAddress, "c", "", "redis address for the catalog cache")
	flag.StringVar(&cfg.AdvisorAPIKey, "k", "", "advisor API key")
	flag.StringVar(&cfg.AdvisorAPIURL, "u", "", "advisor API URL")
	flag.StringVar(&cfg.AuthSecret, "s", "", "auth cookie signing secret")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envRedisAddress != "" {
		cfg.RedisAddress = envRedisAddress
	}
	if envAdvisorKey != "" {
		cfg.AdvisorAPIKey = envAdvisorKey
	}
	if envAdvisorURL != "" {
		cfg.AdvisorAPIURL = envAdvisorURL
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "copilot-secret"
	}

	return cfg, nil
}

package common

import (
	"os"
	"strings"
	"time"

	"github.com/gdi-labs/importkit/constants"
)

// Config holds all client configuration.
type Config struct {
	API  APIConfig
	Poll PollConfig
}

// APIConfig holds backend transport configuration.
type APIConfig struct {
	BaseURL string
	Headers map[string]string
	Timeout time.Duration
}

// PollConfig holds polling loop configuration.
type PollConfig struct {
	Interval    time.Duration
	MaxInterval time.Duration
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: getEnv("IMPORTKIT_BASE_URL", "http://localhost:8080"),
			Headers: getEnvAsHeaderMap("IMPORTKIT_HEADERS"),
			Timeout: getEnvAsDuration("IMPORTKIT_TIMEOUT", 30*time.Second),
		},
		Poll: PollConfig{
			Interval:    getEnvAsDuration("IMPORTKIT_POLL_INTERVAL", 500*time.Millisecond),
			MaxInterval: getEnvAsDuration("IMPORTKIT_POLL_MAX_INTERVAL", 2*time.Second),
		},
	}
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return NewImportError(constants.ErrCodeValidation, "IMPORTKIT_BASE_URL is required", nil)
	}
	if c.Poll.Interval <= 0 {
		return NewImportError(constants.ErrCodeValidation, "IMPORTKIT_POLL_INTERVAL must be positive", nil)
	}
	if c.Poll.MaxInterval < c.Poll.Interval {
		return NewImportError(constants.ErrCodeValidation, "IMPORTKIT_POLL_MAX_INTERVAL must be >= IMPORTKIT_POLL_INTERVAL", nil)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsHeaderMap parses "Key1:v1,Key2:v2" into a header map.
func getEnvAsHeaderMap(key string) map[string]string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	headers := make(map[string]string)
	for _, pair := range strings.Split(value, ",") {
		k, v, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

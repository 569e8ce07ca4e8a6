// internal/config/config.go
// Centralized configuration management
// Loads from environment variables with sensible defaults

package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Config holds all chat client configuration
type Config struct {
	// Transport
	SocketURL string `validate:"required,url"`

	// REST seed endpoint
	APIBaseURL string `validate:"required,url"`

	// Security
	AuthToken string `validate:"required"`

	// History pagination
	PageSize int `validate:"min=1,max=100"`

	// Local debug/metrics HTTP server; empty disables it
	DebugAddr string

	Environment string
}

// Load builds configuration from environment variables
func Load() *Config {
	return &Config{
		SocketURL:   getEnv("CHAT_SOCKET_URL", "ws://localhost:8080/ws"),
		APIBaseURL:  getEnv("CHAT_API_BASE_URL", "http://localhost:8080"),
		AuthToken:   getEnv("CHAT_AUTH_TOKEN", ""),
		PageSize:    getEnvInt("CHAT_PAGE_SIZE", 20),
		DebugAddr:   getEnv("CHAT_DEBUG_ADDR", "127.0.0.1:9180"),
		Environment: getEnv("ENVIRONMENT", "development"),
	}
}

// Validate checks that required configuration is present and well-formed
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Helper functions

// getEnv gets a string value from environment with a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment with a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

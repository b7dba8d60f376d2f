// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Portfolio store backends
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// DefaultCORSOrigins are the front ends allowed to call the API
var DefaultCORSOrigins = []string{
	"https://market-impact-app-8g0glxhd.devinapps.com",
	"https://immersive-techlab.github.io",
}

// Config holds application configuration
type Config struct {
	DataDir              string // Base directory for all databases (always absolute)
	LogLevel             string
	LogPretty            bool
	Port                 int
	DevMode              bool
	OpenAIAPIKey         string // Empty disables period resolution and narratives
	OpenAIModel          string
	OpenAIBaseURL        string
	YahooBaseURL         string
	CORSAllowedOrigins   []string
	PortfolioStore       string // sqlite or memory
	CacheCleanupSchedule string // cron expression with seconds
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:              absDataDir,
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogPretty:            getEnvAsBool("LOG_PRETTY", true),
		Port:                 getEnvAsInt("PORT", 8000),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", ""),
		YahooBaseURL:         getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
		CORSAllowedOrigins:   getEnvAsList("CORS_ALLOWED_ORIGINS", DefaultCORSOrigins),
		PortfolioStore:       strings.ToLower(getEnv("PORTFOLIO_STORE", StoreSQLite)),
		CacheCleanupSchedule: getEnv("CACHE_CLEANUP_SCHEDULE", "0 0 3 * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	switch c.PortfolioStore {
	case StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("unknown portfolio store %q (expected %s or %s)", c.PortfolioStore, StoreSQLite, StoreMemory)
	}

	return nil
}

// LLMEnabled reports whether an OpenAI key is configured
func (c *Config) LLMEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port     string
	MongoURI string
	RedisURL string

	// LLM provider (OpenAI-compatible endpoint)
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	// Requests per second allowed against the LLM provider
	LLMRateLimit float64

	// Vector store persistence directory (chromem-go collections)
	VectorDir string

	// Optional JSON file with provider overrides, hot-reloaded on change
	ProviderFile string

	// How often the retrieval indexes are rebuilt from MongoDB
	RebuildInterval time.Duration

	// Auth and message encryption secrets
	JWTSecret     string
	EncryptionKey string

	// CORS
	AllowedOrigins string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "3001"),
		MongoURI: getEnv("MONGODB_URI", ""),
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),

		LLMBaseURL:   getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:    getEnv("LLM_API_KEY", ""),
		LLMModel:     getEnv("LLM_MODEL", "gpt-4o"),
		LLMRateLimit: getFloatEnv("LLM_RATE_LIMIT", 5),

		VectorDir:       getEnv("VECTOR_DIR", "./data/vectors"),
		ProviderFile:    getEnv("LLM_PROVIDER_FILE", ""),
		RebuildInterval: getDurationEnv("INDEX_REBUILD_INTERVAL", 6*time.Hour),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),

		AllowedOrigins: getEnv("ALLOWED_ORIGINS", ""),
	}
}

// ProviderConfig describes one OpenAI-compatible provider loaded from file
type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
}

// LoadProvider loads the LLM provider configuration from a JSON file.
// Used together with an fsnotify watcher for hot reload.
func LoadProvider(filePath string) (*ProviderConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider file: %w", err)
	}

	var cfg ProviderConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse provider JSON: %w", err)
	}

	if cfg.BaseURL == "" || cfg.Model == "" {
		return nil, fmt.Errorf("provider file must set base_url and model")
	}

	return &cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

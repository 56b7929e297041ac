// Package config loads Finsight configuration from environment variables.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider identifies an LLM or embedding backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
)

// Config holds all configuration values.
type Config struct {
	// Generative model
	LLMProvider Provider
	LLMModel    string

	// Embeddings
	EmbedProvider  Provider
	EmbedModel     string
	EmbedDimension int

	// Provider credentials
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string

	// Remote object store (S3). Empty bucket disables durable persistence
	// and falls back to the in-memory store.
	S3Bucket    string
	S3Region    string
	S3KeyPrefix string

	// Report output
	ReportDir string

	// Retrieval
	TopK int

	// Collaborator call timeouts
	DataTimeout  time.Duration
	LLMTimeout   time.Duration
	StoreTimeout time.Duration

	// Job registry bound: oldest terminal jobs are evicted past this count.
	MaxJobs int

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		LLMProvider: Provider(getEnv("FINSIGHT_LLM_PROVIDER", string(ProviderOpenAI))),
		LLMModel:    getEnv("FINSIGHT_LLM_MODEL", "gpt-4o"),

		EmbedProvider:  Provider(getEnv("FINSIGHT_EMBED_PROVIDER", string(ProviderOpenAI))),
		EmbedModel:     getEnv("FINSIGHT_EMBED_MODEL", "text-embedding-3-small"),
		EmbedDimension: getEnvInt("FINSIGHT_EMBED_DIMENSION", 1536),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),

		S3Bucket:    getEnv("FINSIGHT_S3_BUCKET", ""),
		S3Region:    getEnv("FINSIGHT_S3_REGION", "us-east-1"),
		S3KeyPrefix: getEnv("FINSIGHT_S3_KEY_PREFIX", "indexes/"),

		ReportDir: getEnv("FINSIGHT_REPORT_DIR", "reports"),

		TopK: getEnvInt("FINSIGHT_TOP_K", 5),

		DataTimeout:  getEnvDuration("FINSIGHT_DATA_TIMEOUT", 30*time.Second),
		LLMTimeout:   getEnvDuration("FINSIGHT_LLM_TIMEOUT", 90*time.Second),
		StoreTimeout: getEnvDuration("FINSIGHT_STORE_TIMEOUT", 30*time.Second),

		MaxJobs: getEnvInt("FINSIGHT_MAX_JOBS", 256),

		LogFile:  getEnv("FINSIGHT_LOG_FILE", "/tmp/finsight.log"),
		LogLevel: parseLogLevel(getEnv("FINSIGHT_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

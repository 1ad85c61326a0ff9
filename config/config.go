package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string // default: 8080

	// Database
	PostgresDSN string

	// Cache
	RedisAddr string

	// Providers
	OpenAIAPIKey    string
	GeminiAPIKey    string
	AnthropicAPIKey string
	OllamaBaseURL   string // default: "http://localhost:11434"

	// Routing
	PrimaryProvider  string // "openai", "anthropic", "gemini" or "ollama"
	FallbackProvider string // empty disables fallback
	FallbackModel    string // model used on the fallback leg

	// Generation defaults
	DefaultTemperature float64
	DefaultMaxTokens   int

	// Pricing
	PricingFile string // optional JSON overrides merged over builtins

	// Observability
	OTELTraceExporter    string // "stdout" or "otlp"
	OTELMetricExporter   string // "stdout" or "prometheus"
	OTELExporterEndpoint string // default: "localhost:4317"

	// Rate Limiting
	DefaultRateLimitTPM int64 // tokens per minute, default: 100000
}

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		AnthropicAPIKey:      os.Getenv("ANTHROPIC_API_KEY"),
		OllamaBaseURL:        getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		PrimaryProvider:      getEnv("PRIMARY_PROVIDER", "openai"),
		FallbackProvider:     os.Getenv("FALLBACK_PROVIDER"),
		FallbackModel:        os.Getenv("FALLBACK_MODEL"),
		PricingFile:          os.Getenv("PRICING_FILE"),
		OTELTraceExporter:    getEnv("OTEL_TRACE_EXPORTER", "stdout"),
		OTELMetricExporter:   getEnv("OTEL_METRIC_EXPORTER", "prometheus"),
		OTELExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
	}

	tempStr := getEnv("DEFAULT_TEMPERATURE", "0.7")
	temp, err := strconv.ParseFloat(tempStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TEMPERATURE: %w", err)
	}
	cfg.DefaultTemperature = temp

	maxStr := getEnv("DEFAULT_MAX_TOKENS", "1024")
	maxTokens, err := strconv.Atoi(maxStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_MAX_TOKENS: %w", err)
	}
	cfg.DefaultMaxTokens = maxTokens

	tpmStr := getEnv("DEFAULT_RATE_LIMIT_TPM", "100000")
	tpm, err := strconv.ParseInt(tpmStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_RATE_LIMIT_TPM: %w", err)
	}
	cfg.DefaultRateLimitTPM = tpm

	// Validation
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required")
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required")
	}
	if cfg.FallbackProvider == cfg.PrimaryProvider && cfg.FallbackProvider != "" {
		return nil, fmt.Errorf("FALLBACK_PROVIDER must differ from PRIMARY_PROVIDER")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// BCRA registry
	BCRAAPIURL string

	// HTTP client
	HTTPTimeout time.Duration
	// The registry endpoint serves a certificate chain Go does not trust
	// out of the box, hence the default.
	InsecureSkipVerify bool

	// Batch pacing between consecutive CUITs
	BatchDelay time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BCRAAPIURL: getEnv("BCRA_API_URL", "https://api.bcra.gob.ar/centraldedeudores/v1.0"),

		HTTPTimeout:        getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		InsecureSkipVerify: getEnv("INSECURE_SKIP_VERIFY", "true") == "true",

		BatchDelay: getEnvDuration("BATCH_DELAY", 500*time.Millisecond),

		MaxRetries:     getEnvInt("MAX_RETRIES", 0),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 10),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

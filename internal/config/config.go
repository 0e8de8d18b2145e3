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
	Port           int
	LogLevel       string
	MaxUploadBytes int64

	// Model service
	ModelProvider    string // "anthropic" or "gemini"
	AnthropicAPIKey  string
	AnthropicBaseURL string
	GeminiAPIKey     string
	Model            string
	MaxTokens        int

	// Resilience
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// Chunking
	MaxChunkSize int
	ChunkOverlap int

	// Persistence (all optional; empty disables the integration)
	GCSBucket           string
	BigQueryProject     string
	BigQueryDataset     string
	BigQueryAPIEndpoint string

	// Notion export
	NotionToken      string
	NotionDatabaseID string

	// Auth
	AuthEnabled  bool
	JWKSURL      string
	JWTIssuer    string
	JWTAudience  string
	JWKSCacheTTL time.Duration
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:           getEnvInt("PORT", 8080),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 20<<20)),

		ModelProvider:    getEnv("MODEL_PROVIDER", "anthropic"),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", ""),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		Model:            getEnv("EXTRACTION_MODEL", ""),
		MaxTokens:        getEnvInt("MAX_TOKENS", 3000),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		BaseDelay:      getEnvDuration("RETRY_BASE_DELAY", time.Second),
		MaxDelay:       getEnvDuration("RETRY_MAX_DELAY", 30*time.Second),
		ConnectTimeout: getEnvDuration("CONNECT_TIMEOUT", 30*time.Second),
		ReadTimeout:    getEnvDuration("READ_TIMEOUT", 90*time.Second),

		MaxChunkSize: getEnvInt("MAX_CHUNK_SIZE", 25000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 2000),

		GCSBucket:           getEnv("GCS_BUCKET", ""),
		BigQueryProject:     getEnv("BIGQUERY_PROJECT", ""),
		BigQueryDataset:     getEnv("BIGQUERY_DATASET", "ledger"),
		BigQueryAPIEndpoint: getEnv("BIGQUERY_API_ENDPOINT", ""),

		NotionToken:      getEnv("NOTION_TOKEN", ""),
		NotionDatabaseID: getEnv("NOTION_DATABASE_ID", ""),

		AuthEnabled:  getEnvBool("AUTH_ENABLED", false),
		JWKSURL:      getEnv("JWKS_URL", ""),
		JWTIssuer:    getEnv("JWT_ISSUER", ""),
		JWTAudience:  getEnv("JWT_AUDIENCE", ""),
		JWKSCacheTTL: getEnvDuration("JWKS_CACHE_TTL", time.Hour),
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
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
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

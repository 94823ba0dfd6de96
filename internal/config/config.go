package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Host string
	Port string

	// Database settings
	DatabasePath string

	// Logging settings
	LogLevel  string
	LogFormat string

	// Cache settings
	StatsCacheTTL time.Duration

	// Ingestion settings
	RawDir      string
	ProcDir     string
	CommitEvery int

	// OpenAI / counsel settings
	OpenAIAPIKey   string
	OpenAIModel    string
	MaxTokens      int
	Temperature    float64
	CounselTimeout time.Duration
	SessionTTL     time.Duration

	// CourtListener fetch settings
	CourtListenerBaseURL string
	CourtListenerToken   string
	FetchPages           int
	FetchPageSize        int
	FetchMaxRetries      int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Not an error if .env doesn't exist
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Host:                 getEnv("HOST", "0.0.0.0"),
		Port:                 getEnv("PORT", "8080"),
		DatabasePath:         getEnv("DATABASE_PATH", "./data/caselaw.db"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "json"),
		RawDir:               getEnv("RAW_DIR", "./data/raw"),
		ProcDir:              getEnv("PROC_DIR", "./data/processed"),
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		CourtListenerBaseURL: getEnv("COURTLISTENER_BASE_URL", "https://www.courtlistener.com/api/rest/v4"),
		CourtListenerToken:   getEnv("COURTLISTENER_API_TOKEN", ""),
	}

	// Parse numeric values
	var err error
	cfg.CommitEvery, err = strconv.Atoi(getEnv("COMMIT_EVERY", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid COMMIT_EVERY: %w", err)
	}

	cfg.MaxTokens, err = strconv.Atoi(getEnv("MAX_TOKENS", "4000"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_TOKENS: %w", err)
	}

	cfg.Temperature, err = strconv.ParseFloat(getEnv("TEMPERATURE", "0.1"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TEMPERATURE: %w", err)
	}

	statsCacheTTL, err := strconv.Atoi(getEnv("STATS_CACHE_TTL", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid STATS_CACHE_TTL: %w", err)
	}
	cfg.StatsCacheTTL = time.Duration(statsCacheTTL) * time.Second

	counselTimeout, err := strconv.Atoi(getEnv("COUNSEL_TIMEOUT", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid COUNSEL_TIMEOUT: %w", err)
	}
	cfg.CounselTimeout = time.Duration(counselTimeout) * time.Second

	sessionTTL, err := strconv.Atoi(getEnv("SESSION_TTL", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	cfg.SessionTTL = time.Duration(sessionTTL) * time.Minute

	cfg.FetchPages, err = strconv.Atoi(getEnv("FETCH_PAGES", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_PAGES: %w", err)
	}

	cfg.FetchPageSize, err = strconv.Atoi(getEnv("FETCH_PAGE_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_PAGE_SIZE: %w", err)
	}

	cfg.FetchMaxRetries, err = strconv.Atoi(getEnv("FETCH_MAX_RETRIES", "6"))
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_MAX_RETRIES: %w", err)
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

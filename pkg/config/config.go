package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Every environment variable is read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Upstream market-data providers
	Providers ProviderConfig

	// Ingestion pipeline
	Ingest IngestConfig

	// Sentiment scoring
	Scoring ScoringConfig

	// Sector weight vector
	Weights WeightConfig

	// Sector universe definition (YAML); empty means built-in default
	UniverseFile string

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration. Redis is optional; when disabled
// provider rate limits are enforced in-process only.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// ProviderConfig holds credentials and endpoints for upstream providers.
type ProviderConfig struct {
	FinnhubAPIKey        string
	FinnhubBaseURL       string
	AlphaVantageAPIKey   string
	AlphaVantageBaseURL  string
	StockAnalysisBaseURL string
}

// IngestConfig controls the daily ingestion pipeline.
type IngestConfig struct {
	// Workers bounds the number of instruments resolved concurrently.
	Workers int

	// FetchTimeout bounds a single provider call.
	FetchTimeout time.Duration

	// ProviderOrder is the cascade priority, highest first.
	ProviderOrder []string

	// RateLimitPause is the bounded pause applied after a rate-limited
	// provider before the next provider in the cascade is tried.
	RateLimitPause time.Duration
}

// ScoringConfig controls momentum-based sentiment scoring.
type ScoringConfig struct {
	// EMASpan is the trailing window, in trading days, for the EMA.
	EMASpan int

	// SentimentMidpoint is the score assigned to zero momentum.
	SentimentMidpoint float64

	// SentimentSlope is points of score per 1% of momentum.
	SentimentSlope float64
}

// WeightConfig controls the sector weight vector.
type WeightConfig struct {
	// Floor is the minimum weight any sector may hold.
	Floor float64

	// Tolerance is the accepted deviation of the vector sum from 100.
	Tolerance float64
}

// Load reads configuration from environment variables.
// Only this function calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Providers: ProviderConfig{
			FinnhubAPIKey:        getEnv("FINNHUB_API_KEY", ""),
			FinnhubBaseURL:       getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
			AlphaVantageAPIKey:   getEnv("ALPHAVANTAGE_API_KEY", ""),
			AlphaVantageBaseURL:  getEnv("ALPHAVANTAGE_BASE_URL", "https://www.alphavantage.co"),
			StockAnalysisBaseURL: getEnv("STOCKANALYSIS_BASE_URL", "https://stockanalysis.com"),
		},

		Ingest: IngestConfig{
			Workers:        getEnvAsInt("INGEST_WORKERS", 4),
			FetchTimeout:   getEnvAsDuration("INGEST_FETCH_TIMEOUT", "15s"),
			ProviderOrder:  getEnvAsList("INGEST_PROVIDER_ORDER", "finnhub,yahoo,alphavantage,stockanalysis"),
			RateLimitPause: getEnvAsDuration("INGEST_RATE_LIMIT_PAUSE", "2s"),
		},

		Scoring: ScoringConfig{
			EMASpan:           getEnvAsInt("SCORING_EMA_SPAN", 20),
			SentimentMidpoint: getEnvAsFloat("SCORING_SENTIMENT_MIDPOINT", 50.0),
			SentimentSlope:    getEnvAsFloat("SCORING_SENTIMENT_SLOPE", 10.0),
		},

		Weights: WeightConfig{
			Floor:     getEnvAsFloat("WEIGHT_FLOOR", 1.0),
			Tolerance: getEnvAsFloat("WEIGHT_TOLERANCE", 0.01),
		},

		UniverseFile: getEnv("UNIVERSE_FILE", ""),

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Ingest.Workers < 1 {
		return fmt.Errorf("INGEST_WORKERS must be at least 1")
	}

	if len(c.Ingest.ProviderOrder) == 0 {
		return fmt.Errorf("INGEST_PROVIDER_ORDER must name at least one provider")
	}

	if c.Scoring.EMASpan < 2 {
		return fmt.Errorf("SCORING_EMA_SPAN must be at least 2")
	}

	if c.Weights.Floor < 0 || c.Weights.Floor > 100 {
		return fmt.Errorf("WEIGHT_FLOOR must be within [0, 100]")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func getEnvAsList(key, defaultValue string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Environment variables are read here and nowhere else.
type Config struct {
	Env string // development, staging, production

	// HTTP API
	Port string

	// Database (wealth store + profile store)
	Database DatabaseConfig

	// Redis (optional provider response cache)
	Redis RedisConfig

	// Object storage for pipeline outputs
	Storage StorageConfig

	// External providers
	Census CensusConfig
	BLS    BLSConfig
	FRED   FREDConfig

	// Pipeline tuning
	Pipeline PipelineConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// StorageConfig holds object storage configuration.
// When Endpoint is empty the pipeline writes to LocalDir instead of S3.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	LocalDir  string
}

// CensusConfig holds Census Bureau ACS API configuration.
type CensusConfig struct {
	APIKey  string
	BaseURL string
}

// BLSConfig holds Bureau of Labor Statistics API configuration.
type BLSConfig struct {
	APIKey  string
	BaseURL string
}

// FREDConfig holds Federal Reserve Economic Data API configuration.
type FREDConfig struct {
	APIKey  string
	BaseURL string
}

// PipelineConfig holds enrichment pipeline tuning knobs.
type PipelineConfig struct {
	Workers          int // enrichment worker pool size
	MaxRetries       int // provider request retry ceiling
	RequestTimeout   time.Duration
	PatternThreshold float64 // minimum |r| for an accepted correlation pattern
	PatternMinCount  int     // minimum qualifying profiles per candidate
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8097"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
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

		Storage: StorageConfig{
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Bucket:    getEnv("S3_BUCKET", "mindthegap-gov-data"),
			UseSSL:    getEnvAsBool("S3_USE_SSL", true),
			LocalDir:  getEnv("STORAGE_LOCAL_DIR", "data/out"),
		},

		Census: CensusConfig{
			APIKey:  getEnv("CENSUS_API_KEY", ""),
			BaseURL: getEnv("CENSUS_BASE_URL", "https://api.census.gov/data"),
		},
		BLS: BLSConfig{
			APIKey:  getEnv("BLS_API_KEY", ""),
			BaseURL: getEnv("BLS_BASE_URL", "https://api.bls.gov/publicAPI/v2"),
		},
		FRED: FREDConfig{
			APIKey:  getEnv("FRED_API_KEY", ""),
			BaseURL: getEnv("FRED_BASE_URL", "https://api.stlouisfed.org/fred"),
		},

		Pipeline: PipelineConfig{
			Workers:          getEnvAsInt("PIPELINE_WORKERS", 8),
			MaxRetries:       getEnvAsInt("PIPELINE_MAX_RETRIES", 3),
			RequestTimeout:   getEnvAsDuration("PIPELINE_REQUEST_TIMEOUT", "10s"),
			PatternThreshold: getEnvAsFloat("PATTERN_THRESHOLD", 0.5),
			PatternMinCount:  getEnvAsInt("PATTERN_MIN_COUNT", 5),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks required configuration values.
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("PIPELINE_WORKERS must be at least 1")
	}

	if c.Pipeline.PatternThreshold < 0 || c.Pipeline.PatternThreshold > 1 {
		return fmt.Errorf("PATTERN_THRESHOLD must be in [0,1]")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
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

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	EmbeddingBaseURL      string
	EmbeddingModelName    string
	EmbeddingAPIKey       string
	EmbeddingBatchSize    int
	EmbeddingConcurrency  int
	DBPath                string
	QdrantURL             string
	QdrantCollection      string
	QdrantVectorSize      int
	ChunkSizeTokens       int
	ChunkOverlapTokens    int
	DirectContextMaxChars int
	MaxUploadBytes        int64
	StuckTimeout          time.Duration
	SweepInterval         time.Duration
	APIPort               string
	LogLevel              slog.Level
	LogFormat             string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	// Check current directory first, then walk up to find project root (where go.mod is)
	_ = godotenv.Load() // Try current directory

	// Try to find project root by looking for .env next to go.mod
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "text-embedding-3-small"),
		EmbeddingAPIKey:    getEnv("EMBEDDING_API_KEY", "dummy-key"),
		DBPath:             getEnv("DB_PATH", "./data/docindex.db"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "documents"),
		APIPort:            getEnv("API_PORT", "9000"),
	}

	// QDRANT_VECTOR_SIZE must match the output dimension of the embeddings
	// model. If the size changes, the Qdrant collection must be recreated.
	vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
	}
	cfg.QdrantVectorSize = vectorSize

	if cfg.EmbeddingBatchSize, err = getEnvInt("EMBEDDING_BATCH_SIZE", 16); err != nil {
		return nil, err
	}
	if cfg.EmbeddingConcurrency, err = getEnvInt("EMBEDDING_CONCURRENCY", 2); err != nil {
		return nil, err
	}
	if cfg.ChunkSizeTokens, err = getEnvInt("CHUNK_SIZE_TOKENS", 800); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlapTokens, err = getEnvInt("CHUNK_OVERLAP_TOKENS", 200); err != nil {
		return nil, err
	}
	if cfg.DirectContextMaxChars, err = getEnvInt("DIRECT_CONTEXT_MAX_CHARS", 50000); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlapTokens >= cfg.ChunkSizeTokens {
		return nil, fmt.Errorf("CHUNK_OVERLAP_TOKENS (%d) must be smaller than CHUNK_SIZE_TOKENS (%d)",
			cfg.ChunkOverlapTokens, cfg.ChunkSizeTokens)
	}

	maxUploadMB, err := getEnvInt("MAX_UPLOAD_MB", 10)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxUploadMB) << 20

	if cfg.StuckTimeout, err = getEnvDuration("STUCK_TIMEOUT", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getEnvDuration("SWEEP_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}

	if cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "text"))
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be \"text\" or \"json\", got %q", cfg.LogFormat)
	}

	// Create ./data directory if it doesn't exist (for the DB file)
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// parseLogLevel maps a level name to a slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", level)
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets a positive integer environment variable or returns a
// default value.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return parsed, nil
}

// getEnvDuration gets a duration environment variable (e.g. "10m") or
// returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return parsed, nil
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string
	EmbeddingDim       int

	DBPath           string
	QdrantURL        string
	QdrantCollection string

	// Chunking
	MaxChunkSize int    // Max runes per chunk
	ChunkMode    string // "fixed" or "semantic"

	// Question synthesis
	QuestionsPerChunk int

	// Retrieval defaults
	TopKDefault         int
	SimilarityThreshold float64

	// Ingestion
	IngestWorkers int

	// Backend call timeouts
	EmbedTimeout time.Duration
	ChatTimeout  time.Duration

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it is loaded
// automatically; environment variables already set take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up to find a .env at the project root.
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		DBPath:             getEnv("DB_PATH", "./data/askdoc.db"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "chunks"),
		ChunkMode:          getEnv("CHUNK_MODE", "fixed"),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	// EMBEDDING_DIM must match the output vector size of the embeddings model.
	// If it changes, the Qdrant collection must be recreated and the store
	// re-ingested; mixing embedding model versions in one index is not supported.
	dimStr := getEnv("EMBEDDING_DIM", "")
	if dimStr == "" {
		return nil, fmt.Errorf("EMBEDDING_DIM is required")
	}
	dim, err := strconv.Atoi(dimStr)
	if err != nil {
		return nil, fmt.Errorf("EMBEDDING_DIM must be a valid integer: %w", err)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("EMBEDDING_DIM must be greater than 0")
	}
	cfg.EmbeddingDim = dim

	cfg.MaxChunkSize, err = getEnvInt("MAX_CHUNK_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	if cfg.MaxChunkSize <= 0 {
		return nil, fmt.Errorf("MAX_CHUNK_SIZE must be greater than 0")
	}

	if cfg.ChunkMode != "fixed" && cfg.ChunkMode != "semantic" {
		return nil, fmt.Errorf("CHUNK_MODE must be \"fixed\" or \"semantic\", got %q", cfg.ChunkMode)
	}

	cfg.QuestionsPerChunk, err = getEnvInt("QUESTIONS_PER_CHUNK", 3)
	if err != nil {
		return nil, err
	}
	if cfg.QuestionsPerChunk < 0 {
		return nil, fmt.Errorf("QUESTIONS_PER_CHUNK must not be negative")
	}

	cfg.TopKDefault, err = getEnvInt("TOP_K_DEFAULT", 5)
	if err != nil {
		return nil, err
	}
	if cfg.TopKDefault <= 0 {
		return nil, fmt.Errorf("TOP_K_DEFAULT must be greater than 0")
	}

	thresholdStr := getEnv("SIMILARITY_THRESHOLD", "0.25")
	threshold, err := strconv.ParseFloat(thresholdStr, 64)
	if err != nil {
		return nil, fmt.Errorf("SIMILARITY_THRESHOLD must be a valid float: %w", err)
	}
	if threshold < -1 || threshold > 1 {
		return nil, fmt.Errorf("SIMILARITY_THRESHOLD must be in [-1, 1], got %v", threshold)
	}
	cfg.SimilarityThreshold = threshold

	cfg.IngestWorkers, err = getEnvInt("INGEST_WORKERS", 1)
	if err != nil {
		return nil, err
	}
	if cfg.IngestWorkers <= 0 {
		return nil, fmt.Errorf("INGEST_WORKERS must be greater than 0")
	}

	cfg.EmbedTimeout, err = getEnvDuration("EMBED_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.ChatTimeout, err = getEnvDuration("CHAT_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, err
	}

	switch getEnv("LOG_LEVEL", "info") {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "info":
		cfg.LogLevel = slog.LevelInfo
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}

	// Create the data directory if it doesn't exist.
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

// getEnvDuration gets a duration environment variable or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return d, nil
}

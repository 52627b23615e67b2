package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrInvalidConfiguration marks a configuration problem that must stop
// the process before it serves traffic.
var ErrInvalidConfiguration = errors.New("invalid configuration")

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// MongoDB (vector index persistence, message archive, device tokens)
	MongoURI string
	DBName   string

	// Redis (rate limiting, asynq ingestion queue)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Gemini
	GeminiAPIKey    string
	GeminiModel     string
	EmbeddingsModel string
	GeminiTier      string

	// Knowledge document
	KnowledgePDFPath string
	FileStorageDir   string
	MaxFileSize      int64

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Retrieval
	TopK               int
	RelevanceThreshold float64

	// Prompt assembly
	MaxPromptChars     int
	HistoryTurns       int
	EmptyContextPolicy string // "decline" or "general"

	// Retry / timeouts for external calls
	MaxRetries        int
	EmbedTimeout      time.Duration
	IndexQueryTimeout time.Duration
	GenerateTimeout   time.Duration

	// Sessions
	SessionTTL time.Duration

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Push notifications (FCM legacy HTTP endpoint)
	FCMServerKey string
	FCMEndpoint  string

	// Tracing
	OTLPEndpoint   string
	TracingEnabled bool
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("%w: error loading .env file: %v", ErrInvalidConfiguration, err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/docchat"),
		DBName:   getEnv("DB_NAME", "docchat"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		EmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		GeminiTier:      getEnv("GEMINI_TIER", "free"),

		KnowledgePDFPath: getEnv("KNOWLEDGE_PDF_PATH", "./data/knowledge.pdf"),
		FileStorageDir:   getEnv("FILE_STORAGE_DIR", "./storage"),
		MaxFileSize:      getEnvInt64("MAX_FILE_SIZE", 20971520), // 20MB

		ChunkSize:    getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 100),

		TopK:               getEnvInt("TOP_K", 3),
		RelevanceThreshold: getEnvFloat64("RELEVANCE_THRESHOLD", 0.35),

		MaxPromptChars:     getEnvInt("MAX_PROMPT_CHARS", 12000),
		HistoryTurns:       getEnvInt("HISTORY_TURNS", 10),
		EmptyContextPolicy: getEnv("EMPTY_CONTEXT_POLICY", "decline"),

		MaxRetries:        getEnvInt("MAX_RETRIES", 3),
		EmbedTimeout:      getEnvDuration("EMBED_TIMEOUT", 15*time.Second),
		IndexQueryTimeout: getEnvDuration("INDEX_QUERY_TIMEOUT", 5*time.Second),
		GenerateTimeout:   getEnvDuration("GENERATE_TIMEOUT", 30*time.Second),

		SessionTTL: getEnvDuration("SESSION_TTL", 30*time.Minute),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		FCMServerKey: getEnv("FCM_SERVER_KEY", ""),
		FCMEndpoint:  getEnv("FCM_ENDPOINT", "https://fcm.googleapis.com/fcm/send"),

		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every recognized option once at startup and fails fast.
func (cfg *Config) Validate() error {
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY is required - set it in .env file", ErrInvalidConfiguration)
	}
	if cfg.ChunkSize <= 0 {
		return fmt.Errorf("%w: CHUNK_SIZE must be > 0, got %d", ErrInvalidConfiguration, cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP must satisfy 0 <= overlap < chunk size, got %d", ErrInvalidConfiguration, cfg.ChunkOverlap)
	}
	if cfg.TopK <= 0 {
		return fmt.Errorf("%w: TOP_K must be > 0, got %d", ErrInvalidConfiguration, cfg.TopK)
	}
	if cfg.RelevanceThreshold < 0 || cfg.RelevanceThreshold > 1 {
		return fmt.Errorf("%w: RELEVANCE_THRESHOLD must be in [0,1], got %f", ErrInvalidConfiguration, cfg.RelevanceThreshold)
	}
	if cfg.MaxPromptChars <= 0 {
		return fmt.Errorf("%w: MAX_PROMPT_CHARS must be > 0, got %d", ErrInvalidConfiguration, cfg.MaxPromptChars)
	}
	if cfg.MaxRetries < 0 {
		return fmt.Errorf("%w: MAX_RETRIES must be >= 0, got %d", ErrInvalidConfiguration, cfg.MaxRetries)
	}
	if cfg.SessionTTL <= 0 {
		return fmt.Errorf("%w: SESSION_TTL must be > 0, got %s", ErrInvalidConfiguration, cfg.SessionTTL)
	}
	switch cfg.EmptyContextPolicy {
	case "decline", "general":
	default:
		return fmt.Errorf("%w: EMPTY_CONTEXT_POLICY must be 'decline' or 'general', got %q", ErrInvalidConfiguration, cfg.EmptyContextPolicy)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// Upload handling
	MaxFileSize    int64
	AllowedTypes   []string
	FileStorageDir string

	// Ingestion policy. Validated once here, never re-checked per call.
	ChunkSize    int
	ChunkOverlap int
	MaxFiles     int
	EmbedBatch   int
	UploadBatch  int

	// MongoDB (Cosmos DB Mongo API compatible)
	MongoURI string
	DBName   string

	// Redis (Asynq broker + rate limiting)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Azure Computer Vision (OCR collaborator)
	VisionEndpoint string
	VisionKey      string

	// Embeddings
	EmbeddingsProvider       string // "azure" (default), "google"
	AzureOpenAIEndpoint      string
	AzureOpenAIKey           string
	AzureOpenAIAPIVersion    string
	AzureEmbeddingDeployment string
	GeminiAPIKey             string
	GoogleEmbeddingsModel    string
	VectorDimensions         int

	// Azure AI Search (vector store collaborator)
	SearchEndpoint  string
	SearchKey       string
	SearchIndexName string

	// Operator auth
	JWTSecret            string
	JWTExpiresIn         string
	OperatorPasswordHash string
	BcryptCost           int

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Maintenance
	FileRetentionHours    int
	ProcessingTimeoutMins int
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		MaxFileSize:    getEnvInt64("MAX_FILE_SIZE", 104857600), // 100MB
		AllowedTypes:   strings.Split(getEnv("ALLOWED_FILE_TYPES", "application/pdf"), ","),
		FileStorageDir: getEnv("FILE_STORAGE_DIR", "./storage"),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 400),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 100),
		MaxFiles:     getEnvInt("MAX_FILES", 10),
		EmbedBatch:   getEnvInt("EMBED_BATCH", 32),
		UploadBatch:  getEnvInt("UPLOAD_BATCH", 100),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/bakasura"),
		DBName:   getEnv("DB_NAME", "bakasura"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		VisionEndpoint: getEnv("AZURE_VISION_ENDPOINT", ""),
		VisionKey:      getEnv("AZURE_VISION_KEY", ""),

		EmbeddingsProvider:       getEnv("EMBEDDINGS_PROVIDER", "azure"),
		AzureOpenAIEndpoint:      getEnv("AZURE_OPENAI_ENDPOINT", ""),
		AzureOpenAIKey:           getEnv("AZURE_OPENAI_API_KEY", ""),
		AzureOpenAIAPIVersion:    getEnv("AZURE_OPENAI_API_VERSION", "2024-02-15-preview"),
		AzureEmbeddingDeployment: getEnv("AZURE_OPENAI_EMBEDDING_DEPLOYMENT", ""),
		GeminiAPIKey:             getEnv("GEMINI_API_KEY", ""),
		GoogleEmbeddingsModel:    getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		VectorDimensions:         getEnvInt("VECTOR_DIMENSIONS", 1536),

		SearchEndpoint:  getEnv("AZURE_SEARCH_ENDPOINT", ""),
		SearchKey:       getEnv("AZURE_SEARCH_KEY", ""),
		SearchIndexName: getEnv("AZURE_SEARCH_INDEX_NAME", "bakasura-documents"),

		JWTSecret:            getEnv("JWT_SECRET", ""),
		JWTExpiresIn:         getEnv("JWT_EXPIRES_IN", "24h"),
		OperatorPasswordHash: getEnv("OPERATOR_PASSWORD_HASH", ""),
		BcryptCost:           getEnvInt("BCRYPT_COST", 12),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		FileRetentionHours:    getEnvInt("FILE_RETENTION_HOURS", 24),
		ProcessingTimeoutMins: getEnvInt("PROCESSING_TIMEOUT_MINS", 30),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects bad configuration at startup. Chunking parameters are
// never clamped: an overlap at or above the chunk size makes the stride
// non-positive and the splitter would never terminate.
func (cfg *Config) Validate() error {
	if cfg.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 {
		return fmt.Errorf("CHUNK_OVERLAP must be non-negative, got %d", cfg.ChunkOverlap)
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be strictly less than CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.ChunkSize)
	}
	if cfg.MaxFiles <= 0 {
		return fmt.Errorf("MAX_FILES must be positive, got %d", cfg.MaxFiles)
	}
	if cfg.EmbedBatch <= 0 {
		return fmt.Errorf("EMBED_BATCH must be positive, got %d", cfg.EmbedBatch)
	}
	if cfg.UploadBatch <= 0 {
		return fmt.Errorf("UPLOAD_BATCH must be positive, got %d", cfg.UploadBatch)
	}
	if cfg.VectorDimensions <= 0 {
		return fmt.Errorf("VECTOR_DIMENSIONS must be positive, got %d", cfg.VectorDimensions)
	}

	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required - set it in .env file")
	}

	switch cfg.EmbeddingsProvider {
	case "azure":
		if cfg.AzureOpenAIEndpoint == "" || cfg.AzureOpenAIKey == "" {
			return fmt.Errorf("AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_API_KEY are required for the azure embeddings provider")
		}
		if cfg.AzureEmbeddingDeployment == "" {
			return fmt.Errorf("AZURE_OPENAI_EMBEDDING_DEPLOYMENT is required (e.g. text-embedding-3-small)")
		}
	case "google":
		if cfg.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the google embeddings provider")
		}
	default:
		return fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}

	if cfg.SearchEndpoint == "" || cfg.SearchKey == "" {
		return fmt.Errorf("AZURE_SEARCH_ENDPOINT and AZURE_SEARCH_KEY are required")
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

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"

	SourceDrive = "drive"
	SourceS3    = "s3"

	SessionMemory = "memory"
	SessionRedis  = "redis"
)

type Config struct {
	HTTPPort string
	LogLevel string
	LogFile  string

	LLM         LLMConfig
	VectorStore VectorStoreConfig
	Source      SourceConfig
	Session     SessionConfig
	Ingestion   IngestionConfig
}

type LLMConfig struct {
	Provider             string
	GeminiAPIKey         string
	GeminiModel          string
	GeminiEmbeddingModel string
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIModel          string
	OpenAIEmbeddingModel string

	// OpenAIEmbeddingDimensions shortens text-embedding-3 vectors; 0 keeps the model size.
	OpenAIEmbeddingDimensions int
	EmbedCacheSize            int
}

type VectorStoreConfig struct {
	Type               string
	DatabaseURL        string
	PostgresDSN        string
	EmbeddingDimension int
}

type SourceConfig struct {
	Type string
	// GoogleCredentials is the service-account JSON document used for Drive.
	GoogleCredentials []byte
	S3                S3Config
}

type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

type SessionConfig struct {
	Store      string
	RedisURL   string
	TTLMinutes int
}

type IngestionConfig struct {
	DownloadDir  string
	ChunkSize    int
	TopN         int
	SyncSchedule string
}

// serviceAccountFields are the individual service-account keys accepted from the
// environment when no GOOGLE_CREDENTIALS_JSON blob is set.
var serviceAccountFields = []string{
	"type",
	"project_id",
	"private_key_id",
	"private_key",
	"client_email",
	"client_id",
	"auth_uri",
	"token_uri",
	"auth_provider_x509_cert_url",
	"client_x509_cert_url",
	"universe_domain",
}

// Load reads the .env file when present and builds the configuration from the
// environment. Missing credentials for the selected providers are reported as errors.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort: getEnv("HTTP_PORT", "8000"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
		LogFile:  getEnv("LOG_FILE", ""),
		LLM: LLMConfig{
			Provider:                  strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
			GeminiAPIKey:              getEnv("GEMINI_API_KEY", ""),
			GeminiModel:               getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			GeminiEmbeddingModel:      getEnv("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),
			OpenAIAPIKey:              getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:             getEnv("OPENAI_BASE_URL", ""),
			OpenAIModel:               getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIEmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			OpenAIEmbeddingDimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 0),
			EmbedCacheSize:            getEnvAsInt("EMBED_CACHE_SIZE", 1024),
		},
		VectorStore: VectorStoreConfig{
			Type:        strings.ToLower(getEnv("VECTOR_STORE", StoreSQLite)),
			DatabaseURL: getEnv("DATABASE_URL", "chroma_storage.db"),
			PostgresDSN: getEnv("POSTGRES_DSN", ""),
		},
		Source: SourceConfig{
			Type: strings.ToLower(getEnv("FILE_SOURCE", SourceDrive)),
			S3: S3Config{
				Endpoint:        getEnv("S3_ENDPOINT", ""),
				Region:          getEnv("S3_REGION", "us-east-1"),
				Bucket:          getEnv("S3_BUCKET", ""),
				Prefix:          getEnv("S3_PREFIX", ""),
				AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			},
		},
		Session: SessionConfig{
			Store:      strings.ToLower(getEnv("SESSION_STORE", SessionMemory)),
			RedisURL:   getEnv("REDIS_URL", "redis://localhost:6379/0"),
			TTLMinutes: getEnvAsInt("SESSION_TTL_MINUTES", 60),
		},
		Ingestion: IngestionConfig{
			DownloadDir:  getEnv("DOWNLOAD_DIR", os.TempDir()),
			ChunkSize:    getEnvAsInt("CHUNK_SIZE", 500),
			TopN:         getEnvAsInt("TOP_N", 3),
			SyncSchedule: getEnv("SYNC_SCHEDULE", ""),
		},
	}

	switch cfg.LLM.Provider {
	case ProviderGemini:
		if cfg.LLM.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
		}
	case ProviderOpenAI:
		if cfg.LLM.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required")
		}
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER: %s", cfg.LLM.Provider)
	}

	cfg.VectorStore.EmbeddingDimension = getEnvAsInt("EMBEDDING_DIMENSION", defaultEmbeddingDimension(cfg.LLM))

	switch cfg.VectorStore.Type {
	case StoreSQLite:
	case StorePostgres:
		if cfg.VectorStore.PostgresDSN == "" {
			return nil, fmt.Errorf("POSTGRES_DSN environment variable is required for the postgres vector store")
		}
	default:
		return nil, fmt.Errorf("unknown VECTOR_STORE: %s", cfg.VectorStore.Type)
	}

	switch cfg.Source.Type {
	case SourceDrive:
		creds, err := GoogleCredentialsFromEnv()
		if err != nil {
			return nil, err
		}
		cfg.Source.GoogleCredentials = creds
	case SourceS3:
		if cfg.Source.S3.Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET environment variable is required for the s3 source")
		}
	default:
		return nil, fmt.Errorf("unknown FILE_SOURCE: %s", cfg.Source.Type)
	}

	switch cfg.Session.Store {
	case SessionMemory, SessionRedis:
	default:
		return nil, fmt.Errorf("unknown SESSION_STORE: %s", cfg.Session.Store)
	}

	return cfg, nil
}

// defaultEmbeddingDimension is the vector size the configured embedding model returns.
func defaultEmbeddingDimension(llm LLMConfig) int {
	if llm.Provider == ProviderOpenAI {
		if llm.OpenAIEmbeddingDimensions > 0 {
			return llm.OpenAIEmbeddingDimensions
		}
		return 1536
	}
	return 768
}

// GoogleCredentialsFromEnv returns the service-account JSON either from the
// GOOGLE_CREDENTIALS_JSON blob or assembled from the individual field variables.
func GoogleCredentialsFromEnv() ([]byte, error) {
	if blob := strings.TrimSpace(getEnv("GOOGLE_CREDENTIALS_JSON", "")); blob != "" {
		if !json.Valid([]byte(blob)) {
			return nil, fmt.Errorf("GOOGLE_CREDENTIALS_JSON is not valid JSON")
		}
		return []byte(blob), nil
	}

	fields := make(map[string]string, len(serviceAccountFields))
	for _, key := range serviceAccountFields {
		fields[key] = getEnv(key, "")
	}
	// Keys pasted into a single env line carry escaped newlines.
	fields["private_key"] = strings.ReplaceAll(fields["private_key"], `\n`, "\n")
	if fields["private_key"] == "" {
		return nil, fmt.Errorf("missing or empty 'private_key' environment variable")
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode service account credentials: %w", err)
	}
	return data, nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

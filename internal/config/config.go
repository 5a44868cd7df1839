package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Search   SearchConfig
	Ai       AIConfig
	Engine   EngineConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type SearchConfig struct {
	SearxngURL    string
	MaxResults    int
	PoolMinSize   int
	PoolMaxSize   int
	RetryAttempts int
}

type AIConfig struct {
	LLMProvider          string // "ollama" or "openai"
	LLMModel             string // e.g. "llama3", "gpt-4o-mini"
	OllamaBaseURL        string
	OpenAIBaseURL        string
	OpenAIKey            string
	EmbeddingProvider    string // "ollama" or "openai"
	OllamaEmbeddingModel string
}

type EngineConfig struct {
	RunDeadline    time.Duration
	EventBuffer    int
	IngestTopic    string
	MaxAgentWorker int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Search: SearchConfig{
			SearxngURL:    getEnv("SEARXNG_URL", "http://localhost:8080"),
			MaxResults:    getEnvAsInt("SEARCH_MAX_RESULTS", 20),
			PoolMinSize:   getEnvAsInt("SEARCH_POOL_MIN_SIZE", 2),
			PoolMaxSize:   getEnvAsInt("SEARCH_POOL_MAX_SIZE", 10),
			RetryAttempts: getEnvAsInt("SEARCH_RETRY_ATTEMPTS", 3),
		},
		Ai: AIConfig{
			LLMProvider:          getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:             getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL:        getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", ""),
			OpenAIKey:            getEnv("OPENAI_API_KEY", ""),
			EmbeddingProvider:    getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaEmbeddingModel: getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
		},
		Engine: EngineConfig{
			RunDeadline:    getEnvAsDuration("RUN_DEADLINE", 5*time.Minute),
			EventBuffer:    getEnvAsInt("EVENT_BUFFER", 64),
			IngestTopic:    getEnv("INGEST_ATTACHMENT_TOPIC_NAME", "INGEST_ATTACHMENT"),
			MaxAgentWorker: getEnvAsInt("MAX_AGENT_WORKERS", 24),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	AI        AIConfig        `mapstructure:"ai"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Engine    EngineConfig    `mapstructure:"engine"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

// AIConfig selects the reasoning/embedding provider explicitly; there is
// no global key storage.
type AIConfig struct {
	Provider string       `mapstructure:"provider"` // "openai" or "gemini"
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
}

type OpenAIConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	Temperature    float64 `mapstructure:"temperature"`
}

type GeminiConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

type RetrievalConfig struct {
	TopK          int          `mapstructure:"top_k"`
	MinSimilarity float64      `mapstructure:"min_similarity"`
	Qdrant        QdrantConfig `mapstructure:"qdrant"`
}

type QdrantConfig struct {
	URL        string `mapstructure:"url"`
	APIKey     string `mapstructure:"api_key"`
	Collection string `mapstructure:"collection"`
}

type EngineConfig struct {
	MaxAttempts             int `mapstructure:"max_attempts"`
	ContextTimeoutSeconds   int `mapstructure:"context_timeout_seconds"`
	ReasoningTimeoutSeconds int `mapstructure:"reasoning_timeout_seconds"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.openai.model", "gpt-4o")
	v.SetDefault("ai.openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("ai.openai.temperature", 0.3)
	v.SetDefault("ai.gemini.model", "gemini-2.0-flash")
	v.SetDefault("ai.gemini.embedding_model", "text-embedding-004")
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.min_similarity", 0.3)
	v.SetDefault("retrieval.qdrant.collection", "knowledge_base")
	v.SetDefault("engine.max_attempts", 3)
	v.SetDefault("engine.context_timeout_seconds", 5)
	v.SetDefault("engine.reasoning_timeout_seconds", 30)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.AI.OpenAI.APIKey = apiKey
	}

	if apiKey := v.GetString("GEMINI_API_KEY"); apiKey != "" {
		config.AI.Gemini.APIKey = apiKey
	}

	if qdrantURL := v.GetString("QDRANT_URL"); qdrantURL != "" {
		config.Retrieval.Qdrant.URL = qdrantURL
	}

	if qdrantKey := v.GetString("QDRANT_API_KEY"); qdrantKey != "" {
		config.Retrieval.Qdrant.APIKey = qdrantKey
	}

	if provider := v.GetString("AI_PROVIDER"); provider != "" {
		config.AI.Provider = provider
	}

	switch config.AI.Provider {
	case "openai", "gemini":
	default:
		return nil, fmt.Errorf("unsupported ai provider: %q", config.AI.Provider)
	}

	return &config, nil
}

package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/helpdeskai/support-agent/internal/engine"
	"github.com/helpdeskai/support-agent/internal/knowledge"
	"github.com/helpdeskai/support-agent/internal/memory"
	"github.com/helpdeskai/support-agent/internal/orchestrator"
	"github.com/helpdeskai/support-agent/internal/server"
	"github.com/helpdeskai/support-agent/internal/storage"
	"github.com/helpdeskai/support-agent/internal/tools"
	"github.com/helpdeskai/support-agent/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	ctx := context.Background()

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		dbConfig := storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		}
		store, err = storage.NewPostgresStorage(dbConfig, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Provider-specific reasoner and embedder
	var (
		reasoner engine.Reasoner
		embedder knowledge.Embedder
	)
	switch cfg.AI.Provider {
	case "gemini":
		logger.Info("Using Gemini provider", zap.String("model", cfg.AI.Gemini.Model))
		reasoner, err = engine.NewGeminiReasoner(ctx, cfg.AI.Gemini.APIKey, cfg.AI.Gemini.Model, logger)
		if err != nil {
			logger.Fatal("Failed to create Gemini reasoner", zap.Error(err))
		}
		embedder, err = knowledge.NewGeminiEmbedder(ctx, cfg.AI.Gemini.APIKey, cfg.AI.Gemini.EmbeddingModel)
		if err != nil {
			logger.Fatal("Failed to create Gemini embedder", zap.Error(err))
		}
	default:
		logger.Info("Using OpenAI provider", zap.String("model", cfg.AI.OpenAI.Model))
		reasoner = engine.NewOpenAIReasoner(cfg.AI.OpenAI.APIKey, cfg.AI.OpenAI.Model, cfg.AI.OpenAI.Temperature, logger)
		embedder = knowledge.NewOpenAIEmbedder(cfg.AI.OpenAI.APIKey, cfg.AI.OpenAI.EmbeddingModel)
	}

	// Knowledge retrieval degrades to empty context when Qdrant is not
	// configured.
	var searcher knowledge.VectorSearcher
	if cfg.Retrieval.Qdrant.URL != "" {
		searcher, err = knowledge.NewQdrantSearcher(knowledge.QdrantConfig{
			URL:        cfg.Retrieval.Qdrant.URL,
			APIKey:     cfg.Retrieval.Qdrant.APIKey,
			Collection: cfg.Retrieval.Qdrant.Collection,
		})
		if err != nil {
			logger.Fatal("Failed to create Qdrant searcher", zap.Error(err))
		}
	} else {
		logger.Warn("No Qdrant URL configured, knowledge retrieval disabled")
	}

	retriever := knowledge.NewRetriever(embedder, searcher, cfg.Retrieval.TopK, cfg.Retrieval.MinSimilarity, logger)
	loader := memory.NewLoader(store, logger)
	registry := tools.NewRegistry(logger)

	eng := engine.New(
		reasoner,
		retriever,
		knowledge.RenderContext,
		loader,
		registry,
		engine.Options{
			MaxAttempts:      cfg.Engine.MaxAttempts,
			ContextTimeout:   time.Duration(cfg.Engine.ContextTimeoutSeconds) * time.Second,
			ReasoningTimeout: time.Duration(cfg.Engine.ReasoningTimeoutSeconds) * time.Second,
		},
		logger,
	)

	orch := orchestrator.New(store, eng, orchestrator.NewLogNotifier(logger), logger)

	srv := server.New(orch, logger)
	if err := srv.Run(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/akolanti/KnowledgeAPI/internal/config"
	"github.com/akolanti/KnowledgeAPI/internal/customHttpClient"
	"github.com/akolanti/KnowledgeAPI/internal/data/documentStore"
	"github.com/akolanti/KnowledgeAPI/internal/data/redisStore"
	"github.com/akolanti/KnowledgeAPI/internal/rag"
	"github.com/akolanti/KnowledgeAPI/internal/rag/cache"
	"github.com/akolanti/KnowledgeAPI/internal/rag/embedding"
	"github.com/akolanti/KnowledgeAPI/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/KnowledgeAPI/internal/rag/embedding/localEmbedding"
	"github.com/akolanti/KnowledgeAPI/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/KnowledgeAPI/internal/rag/ingest"
	"github.com/akolanti/KnowledgeAPI/internal/rag/llm"
	"github.com/akolanti/KnowledgeAPI/internal/rag/llm/anthropicLLM"
	"github.com/akolanti/KnowledgeAPI/internal/rag/llm/gemini"
	"github.com/akolanti/KnowledgeAPI/internal/rag/llm/openaiLLM"
	"github.com/akolanti/KnowledgeAPI/internal/rag/retriever"
	"github.com/akolanti/KnowledgeAPI/internal/rag/synthesizer"
	"github.com/akolanti/KnowledgeAPI/internal/rag/vectorDB"
	"github.com/akolanti/KnowledgeAPI/internal/rag/vectorDB/fileStore"
	"github.com/akolanti/KnowledgeAPI/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/KnowledgeAPI/internal/rag/vectorDB/sqliteStore"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
)

var logger = logger_i.NewLogger("app")

// App holds the wired service and the resources that must be released on exit.
type App struct {
	Service rag.Service
	Library *documentStore.Library

	store vectorDB.Store
}

// New wires the service from settings. Clients that hold connections close when
// ctx is cancelled; Close releases the index store.
func New(ctx context.Context, settings config.Settings) (*App, error) {
	embedder, err := newEmbedder(ctx, settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	provider, err := newLLM(ctx, settings.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	store, err := newIndexStore(settings)
	if err != nil {
		return nil, fmt.Errorf("index store: %w", err)
	}

	indexes := rag.NewIndexManager(rag.IndexManagerConfig{
		Loader: ingest.NewLoader(settings.Paths.DataDir),
		Chunker: ingest.NewChunker(
			ingest.WithChunkSize(settings.Index.ChunkSize),
			ingest.WithOverlap(settings.Index.ChunkOverlap),
		),
		Embedder:     embedder,
		Store:        store,
		BatchSize:    settings.Index.EmbedBatchSize,
		BuildTimeout: settings.Index.BuildTimeout,
	})

	service := rag.NewService(
		indexes,
		retriever.New(embedder, settings.Index.TopK, settings.Index.MinScore),
		synthesizer.New(provider, llm.Options{
			Temperature: settings.LLM.Temperature,
			MaxTokens:   settings.LLM.MaxTokens,
		}, settings.LLM.Timeout),
		newResponseCache(ctx, settings),
	)

	logger.Info("Service wired",
		"embedding", embedder.ModelName(),
		"llm", provider.ModelName(),
		"store", settings.Index.Store,
		"cache", cacheLabel(settings.Cache),
	)
	return &App{
		Service: service,
		Library: documentStore.New(settings.Paths.DataDir, settings.Server.MaxUploadBytes),
		store:   store,
	}, nil
}

func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func newEmbedder(ctx context.Context, s config.EmbeddingSettings) (embedding.Embedder, error) {
	httpClient := customHttpClient.NewPooledClient(s.Timeout)
	switch s.Provider {
	case "local":
		return localEmbedding.New(s.Model, s.Dimension), nil
	case "gemini":
		return googleEmbedding.GetGoogleEmbeddingClient(ctx, s.Model, s.APIKey, s.Dimension, httpClient)
	case "openai":
		return openaiEmbedding.New(s.APIKey, s.Model, s.Dimension, httpClient)
	}
	return nil, fmt.Errorf("unknown provider %q", s.Provider)
}

func newLLM(ctx context.Context, s config.LLMSettings) (llm.Provider, error) {
	httpClient := customHttpClient.NewPooledClient(0)
	switch s.Provider {
	case "gemini":
		return gemini.GetGeminiClient(ctx, s.Model, s.APIKey, httpClient)
	case "anthropic":
		return anthropicLLM.New(s.APIKey, s.Model, httpClient)
	case "openai":
		return openaiLLM.New(s.APIKey, s.Model, httpClient)
	}
	return nil, fmt.Errorf("unknown provider %q", s.Provider)
}

func newIndexStore(settings config.Settings) (vectorDB.Store, error) {
	switch settings.Index.Store {
	case "file":
		return fileStore.New(settings.Paths.StorageDir), nil
	case "sqlite":
		return sqliteStore.New(filepath.Join(settings.Paths.StorageDir, config.SqliteIndexFile)), nil
	case "qdrant":
		return qdrantDB.New(settings.Qdrant)
	}
	return nil, errors.New("unknown store " + settings.Index.Store)
}

// newResponseCache falls back to the in-memory cache when redis is unreachable.
func newResponseCache(ctx context.Context, settings config.Settings) cache.ResponseCache {
	c := settings.Cache
	if !c.Enabled {
		return cache.Noop{}
	}
	if c.Backend == "redis" {
		store, err := redisStore.GetRedisStore(ctx, settings.Redis)
		if err == nil {
			return cache.NewRedisCache(store, c.TTL)
		}
		logger.Error("Redis cache is offline, using the in-memory cache", "addr", settings.Redis.Addr, "error", err)
	}
	return cache.NewMemoryCache(c.TTL, c.MaxEntries)
}

func cacheLabel(c config.CacheSettings) string {
	if !c.Enabled {
		return "disabled"
	}
	return c.Backend
}

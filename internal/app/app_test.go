package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/KnowledgeAPI/internal/config"
	"github.com/akolanti/KnowledgeAPI/internal/rag"
	"github.com/akolanti/KnowledgeAPI/internal/rag/cache"
	"github.com/akolanti/KnowledgeAPI/internal/rag/vectorDB/fileStore"
	"github.com/akolanti/KnowledgeAPI/internal/rag/vectorDB/sqliteStore"
)

func localSettings(t *testing.T) config.Settings {
	s := config.Defaults()
	s.Paths.DataDir = t.TempDir()
	s.Paths.StorageDir = t.TempDir()
	s.Embedding.Provider = "local"
	s.Embedding.Model = config.LocalEmbeddingModel
	s.Embedding.Dimension = config.LocalEmbeddingDimensionality
	s.LLM.Provider = "openai"
	s.LLM.APIKey = "test-key"
	return s
}

func TestNew_LocalStack(t *testing.T) {
	s := localSettings(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Paths.DataDir, "notes.txt"), []byte("hello"), 0o600))

	a, err := New(context.Background(), s)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, rag.IndexStatusNotCreated, a.Service.IndexStatus(context.Background()))
	assert.True(t, a.Library.HasDocuments())
	assert.IsType(t, &fileStore.Store{}, a.store)
}

func TestNew_MissingLLMKey(t *testing.T) {
	s := localSettings(t)
	s.LLM.APIKey = ""

	_, err := New(context.Background(), s)
	assert.Error(t, err)
}

func TestNewIndexStore(t *testing.T) {
	s := localSettings(t)

	s.Index.Store = "sqlite"
	store, err := newIndexStore(s)
	require.NoError(t, err)
	assert.IsType(t, &sqliteStore.Store{}, store)

	s.Index.Store = "qdrant"
	s.Qdrant.Collection = ""
	_, err = newIndexStore(s)
	assert.Error(t, err)

	s.Index.Store = "s3"
	_, err = newIndexStore(s)
	assert.Error(t, err)
}

func TestNewResponseCache(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := localSettings(t)

	s.Cache.Enabled = false
	assert.IsType(t, cache.Noop{}, newResponseCache(ctx, s))

	s.Cache.Enabled = true
	s.Cache.Backend = "memory"
	assert.IsType(t, &cache.MemoryCache{}, newResponseCache(ctx, s))

	mr := miniredis.RunT(t)
	s.Cache.Backend = "redis"
	s.Redis.Addr = mr.Addr()
	s.Redis.DB = 7
	assert.IsType(t, &cache.RedisCache{}, newResponseCache(ctx, s))

	// unreachable redis degrades to memory
	s.Redis.Addr = "127.0.0.1:1"
	s.Redis.DB = 8
	assert.IsType(t, &cache.MemoryCache{}, newResponseCache(ctx, s))
}

package rag_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/akolanti/KnowledgeAPI/internal/domain/commonModels"
	"github.com/akolanti/KnowledgeAPI/internal/rag/embedding"
	"github.com/akolanti/KnowledgeAPI/internal/rag/llm"
	"github.com/akolanti/KnowledgeAPI/internal/rag/vectorDB"
)

// MockLoader implements rag.DocumentLoader
type MockLoader struct {
	OnLoad func(ctx context.Context) ([]commonModels.Document, error)
	calls  atomic.Int32
}

func (m *MockLoader) Load(ctx context.Context) ([]commonModels.Document, error) {
	m.calls.Add(1)
	if m.OnLoad != nil {
		return m.OnLoad(ctx)
	}
	return nil, nil
}

func (m *MockLoader) Calls() int { return int(m.calls.Load()) }

// MockStore implements vectorDB.Store in memory
type MockStore struct {
	OnSave   func(ctx context.Context, snap *vectorDB.Snapshot) error
	OnLoad   func(ctx context.Context) (*vectorDB.Snapshot, error)
	OnExists func(ctx context.Context) (bool, error)

	mu        sync.Mutex
	snap      *vectorDB.Snapshot
	loadCalls int
}

func (m *MockStore) Save(ctx context.Context, snap *vectorDB.Snapshot) error {
	if m.OnSave != nil {
		return m.OnSave(ctx, snap)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap
	return nil
}

func (m *MockStore) Load(ctx context.Context) (*vectorDB.Snapshot, error) {
	m.mu.Lock()
	m.loadCalls++
	m.mu.Unlock()
	if m.OnLoad != nil {
		return m.OnLoad(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, nil
}

func (m *MockStore) Exists(ctx context.Context) (bool, error) {
	if m.OnExists != nil {
		return m.OnExists(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap != nil, nil
}

func (m *MockStore) Close() error { return nil }

func (m *MockStore) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

// CountingEmbedder wraps an embedder and counts batch calls
type CountingEmbedder struct {
	embedding.Embedder
	OnGetEmbedding func(ctx context.Context, text string) ([]float32, error)
	batches        atomic.Int32
}

func (m *CountingEmbedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	m.batches.Add(1)
	return m.Embedder.BatchEmbedding(ctx, texts)
}

func (m *CountingEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, text)
	}
	return m.Embedder.GetEmbedding(ctx, text)
}

func (m *CountingEmbedder) Batches() int { return int(m.batches.Load()) }

// MockLLM implements llm.Provider
type MockLLM struct {
	OnComplete func(ctx context.Context, prompt string, opts llm.Options) (string, error)
	calls      atomic.Int32
}

func (m *MockLLM) Complete(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	m.calls.Add(1)
	if m.OnComplete != nil {
		return m.OnComplete(ctx, prompt, opts)
	}
	return "mocked llm response", nil
}

func (m *MockLLM) ModelName() string { return "mock-llm" }

func (m *MockLLM) Calls() int { return int(m.calls.Load()) }

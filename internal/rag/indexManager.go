package rag

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/KnowledgeAPI/internal/config"
	"github.com/akolanti/KnowledgeAPI/internal/domain/commonModels"
	"github.com/akolanti/KnowledgeAPI/internal/domain/ragErrors"
	"github.com/akolanti/KnowledgeAPI/internal/metrics"
	"github.com/akolanti/KnowledgeAPI/internal/rag/embedding"
	"github.com/akolanti/KnowledgeAPI/internal/rag/ingest"
	"github.com/akolanti/KnowledgeAPI/internal/rag/vectorDB"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
)

type indexState int

const (
	indexCold indexState = iota
	indexReady
	indexCorrupt
)

func (s indexState) String() string {
	switch s {
	case indexReady:
		return "ready"
	case indexCorrupt:
		return "corrupt"
	default:
		return "cold"
	}
}

// IndexStatus is what the health endpoint reports.
type IndexStatus string

const (
	IndexStatusReady      IndexStatus = "ready"
	IndexStatusNotCreated IndexStatus = "not_created"
)

// DocumentLoader reads the source corpus.
type DocumentLoader interface {
	Load(ctx context.Context) ([]commonModels.Document, error)
}

// IndexManager owns the live index. Restoring or building happens at most once at
// a time; callers that arrive meanwhile wait for the result.
//
// A corrupt store stays corrupt for the life of the process unless Rebuild is
// called. An empty corpus leaves the manager cold so a later call looks again.
type IndexManager struct {
	mu    sync.Mutex
	state indexState
	idx   *vectorDB.Index
	fault error
	// live and corrupt mirror state for readers that must not wait on a build
	live    atomic.Bool
	corrupt atomic.Bool

	loader       DocumentLoader
	chunker      *ingest.Chunker
	embedder     embedding.Embedder
	store        vectorDB.Store
	batchSize    int
	buildTimeout time.Duration
	logger       *logger_i.Logger
}

type IndexManagerConfig struct {
	Loader       DocumentLoader
	Chunker      *ingest.Chunker
	Embedder     embedding.Embedder
	Store        vectorDB.Store
	BatchSize    int
	BuildTimeout time.Duration
}

func NewIndexManager(cfg IndexManagerConfig) *IndexManager {
	if cfg.Chunker == nil {
		cfg.Chunker = ingest.NewChunker()
	}
	if cfg.BuildTimeout <= 0 {
		cfg.BuildTimeout = config.IndexBuildTimeout
	}
	return &IndexManager{
		loader:       cfg.Loader,
		chunker:      cfg.Chunker,
		embedder:     cfg.Embedder,
		store:        cfg.Store,
		batchSize:    cfg.BatchSize,
		buildTimeout: cfg.BuildTimeout,
		logger:       logger_i.NewLogger("Index Manager"),
	}
}

// Get returns the ready index, restoring or building it first if needed.
func (m *IndexManager) Get(ctx context.Context) (*vectorDB.Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case indexReady:
		return m.idx, nil
	case indexCorrupt:
		return nil, m.fault
	}

	// the build outlives the request that triggered it; others may be waiting on it
	buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.buildTimeout)
	defer cancel()
	loggr := m.logger.WithTrace(ctx)

	idx, err := vectorDB.Restore(buildCtx, m.store, m.embedder.ModelName(), m.embedder.Dimension())
	if err != nil {
		if errors.Is(err, ragErrors.ErrIndexCorruption) {
			loggr.Error("Persisted index is corrupt, refusing to overwrite it", "error", err)
			m.state, m.fault = indexCorrupt, err
			m.corrupt.Store(true)
			metrics.IndexBuilt("corrupt", 0)
			return nil, err
		}
		metrics.IndexBuilt("failed", 0)
		return nil, err
	}
	if idx != nil {
		m.ready(idx)
		metrics.IndexBuilt("restored", idx.Len())
		return idx, nil
	}

	loggr.Info("No persisted index, building from documents")
	idx, err = m.build(buildCtx)
	if err != nil {
		return nil, err
	}
	m.ready(idx)
	return idx, nil
}

// Rebuild builds a fresh index from the documents and replaces whatever is stored,
// including a corrupt store. On failure the previous state is kept.
func (m *IndexManager) Rebuild(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.buildTimeout)
	defer cancel()

	m.logger.WithTrace(ctx).Info("Rebuilding index", "previousState", m.state.String())
	idx, err := m.build(buildCtx)
	if err != nil {
		return err
	}
	m.ready(idx)
	return nil
}

func (m *IndexManager) build(ctx context.Context) (*vectorDB.Index, error) {
	loggr := m.logger.WithTrace(ctx)
	start := time.Now()

	docs, err := m.loader.Load(ctx)
	if err != nil {
		metrics.IndexBuilt("failed", 0)
		return nil, err
	}
	chunks := m.chunker.ChunkAll(docs)
	if len(chunks) == 0 {
		metrics.IndexBuilt("empty", 0)
		return nil, ragErrors.Wrap(ragErrors.ErrEmptyCorpus, nil, "%d documents produced no chunks", len(docs))
	}
	loggr.Info("Chunked documents", "documents", len(docs), "chunks", len(chunks))

	idx, err := vectorDB.Build(ctx, chunks, m.embedder, m.batchSize)
	if err != nil {
		metrics.IndexBuilt("failed", 0)
		return nil, ragErrors.Wrap(ragErrors.ErrRetrieval, err, "building index")
	}
	metrics.CaptureExecutionMetrics("index_build", time.Since(start))

	if err := vectorDB.Persist(ctx, idx, m.store); err != nil {
		// serve what was built; the next process start rebuilds
		loggr.Error("Could not persist index", "error", err)
	}
	metrics.IndexBuilt("built", idx.Len())
	return idx, nil
}

func (m *IndexManager) ready(idx *vectorDB.Index) {
	m.idx = idx
	m.state = indexReady
	m.fault = nil
	m.live.Store(true)
	m.corrupt.Store(false)
}

// Status reports ready when an index is live or persisted. A store that failed
// to restore is not_created even though its files are present.
func (m *IndexManager) Status(ctx context.Context) IndexStatus {
	if m.live.Load() {
		return IndexStatusReady
	}
	if m.corrupt.Load() {
		return IndexStatusNotCreated
	}

	exists, err := m.store.Exists(ctx)
	if err != nil {
		m.logger.WithTrace(ctx).Warn("Could not check index store", "error", err)
		return IndexStatusNotCreated
	}
	if exists {
		return IndexStatusReady
	}
	return IndexStatusNotCreated
}

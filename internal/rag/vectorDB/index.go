package vectorDB

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/akolanti/KnowledgeAPI/internal/config"
	"github.com/akolanti/KnowledgeAPI/internal/domain/commonModels"
	"github.com/akolanti/KnowledgeAPI/internal/domain/ragErrors"
	"github.com/akolanti/KnowledgeAPI/internal/rag/embedding"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
)

var logger = logger_i.NewLogger("Vector Index")

// Index is an in-memory exact cosine index. It is immutable once built, so
// concurrent searches need no locking.
type Index struct {
	dimension int
	model     string
	createdAt time.Time
	entries   []entry
}

type entry struct {
	chunk commonModels.Chunk
	norm  float64
}

func (idx *Index) Len() int               { return len(idx.entries) }
func (idx *Index) Dimension() int         { return idx.dimension }
func (idx *Index) EmbeddingModel() string { return idx.model }

// Build embeds every chunk in batches and returns the index. Chunks keep their
// input order, which is also the tie break order for search.
func Build(ctx context.Context, chunks []commonModels.Chunk, embedder embedding.Embedder, batchSize int) (*Index, error) {
	if len(chunks) == 0 {
		return nil, errors.New("build index: no chunks")
	}
	if batchSize < 1 {
		batchSize = config.EmbeddingBatchSize
	}
	log := logger.WithTrace(ctx)

	idx := &Index{model: embedder.ModelName(), createdAt: time.Now().UTC()}
	idx.entries = make([]entry, 0, len(chunks))

	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		log.Debug("Embedding batch", "from", start, "to", end, "total", len(chunks))
		vectors, err := embedder.BatchEmbedding(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d failed: %w", start, end, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedding batch %d-%d: got %d vectors for %d chunks", start, end, len(vectors), len(batch))
		}

		for i, c := range batch {
			c.Embedding = vectors[i]
			if err := idx.add(c); err != nil {
				return nil, err
			}
		}
	}

	log.Info("Index built", "chunks", idx.Len(), "dimension", idx.dimension, "model", idx.model)
	return idx, nil
}

func (idx *Index) add(c commonModels.Chunk) error {
	if len(c.Embedding) == 0 {
		return fmt.Errorf("chunk %s has no embedding", c.Id)
	}
	if idx.dimension == 0 {
		idx.dimension = len(c.Embedding)
	}
	if len(c.Embedding) != idx.dimension {
		return fmt.Errorf("chunk %s has dimension %d, index has %d", c.Id, len(c.Embedding), idx.dimension)
	}
	idx.entries = append(idx.entries, entry{chunk: c, norm: l2(c.Embedding)})
	return nil
}

// Search returns up to k chunks ranked by cosine similarity to query. Equal scores
// keep insertion order.
func (idx *Index) Search(query []float32, k int) ([]commonModels.ScoredChunk, error) {
	if k <= 0 || len(idx.entries) == 0 {
		return []commonModels.ScoredChunk{}, nil
	}
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), idx.dimension)
	}

	qNorm := l2(query)
	results := make([]commonModels.ScoredChunk, len(idx.entries))
	for i, e := range idx.entries {
		results[i] = commonModels.ScoredChunk{Chunk: e.chunk, Score: cosine(query, qNorm, e.chunk.Embedding, e.norm)}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Snapshot returns the persistable form of the index.
func (idx *Index) Snapshot() *Snapshot {
	chunks := make([]commonModels.Chunk, len(idx.entries))
	for i, e := range idx.entries {
		chunks[i] = e.chunk
	}
	return &Snapshot{Dimension: idx.dimension, EmbeddingModel: idx.model, CreatedAt: idx.createdAt, Chunks: chunks}
}

// FromSnapshot rebuilds an index, rejecting anything inconsistent as corruption.
func FromSnapshot(snap *Snapshot) (*Index, error) {
	if snap == nil || len(snap.Chunks) == 0 {
		return nil, ragErrors.Corruption(nil, "snapshot has no chunks")
	}
	if snap.Dimension <= 0 {
		return nil, ragErrors.Corruption(nil, "snapshot has invalid dimension %d", snap.Dimension)
	}

	idx := &Index{dimension: snap.Dimension, model: snap.EmbeddingModel, createdAt: snap.CreatedAt}
	idx.entries = make([]entry, 0, len(snap.Chunks))
	seen := make(map[string]bool, len(snap.Chunks))
	for _, c := range snap.Chunks {
		if seen[c.Id] {
			return nil, ragErrors.Corruption(nil, "duplicate chunk id %s", c.Id)
		}
		seen[c.Id] = true
		if err := idx.add(c); err != nil {
			return nil, ragErrors.Corruption(err, "invalid chunk")
		}
	}
	return idx, nil
}

// Persist writes the index to store.
func Persist(ctx context.Context, idx *Index, store Store) error {
	start := time.Now()
	if err := store.Save(ctx, idx.Snapshot()); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	logger.WithTrace(ctx).Info("Index persisted", "chunks", idx.Len(), "took", time.Since(start))
	return nil
}

// Restore loads a persisted index. It returns (nil, nil) when nothing is
// persisted. A snapshot built with a different embedding model, or with a
// different output size when expectedDimension is set, is reported as corruption:
// its vectors cannot be compared with new query vectors.
func Restore(ctx context.Context, store Store, expectedModel string, expectedDimension int) (*Index, error) {
	snap, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, nil
	}
	if expectedModel != "" && snap.EmbeddingModel != expectedModel {
		return nil, ragErrors.Corruption(nil, "index was built with embedding model %q, configured model is %q", snap.EmbeddingModel, expectedModel)
	}
	if expectedDimension > 0 && snap.Dimension != expectedDimension {
		return nil, ragErrors.Corruption(nil, "index has dimension %d, configured embedding dimension is %d", snap.Dimension, expectedDimension)
	}
	idx, err := FromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	logger.WithTrace(ctx).Info("Index restored", "chunks", idx.Len(), "model", idx.model, "builtAt", idx.createdAt)
	return idx, nil
}

func l2(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}

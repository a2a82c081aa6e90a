package retriever

import (
	"context"

	"github.com/akolanti/KnowledgeAPI/internal/config"
	"github.com/akolanti/KnowledgeAPI/internal/domain/commonModels"
	"github.com/akolanti/KnowledgeAPI/internal/domain/ragErrors"
	"github.com/akolanti/KnowledgeAPI/internal/rag/embedding"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
)

var logger = logger_i.NewLogger("Retriever")

// Searcher is the part of the vector index the retriever needs.
type Searcher interface {
	Search(query []float32, k int) ([]commonModels.ScoredChunk, error)
}

type Retriever struct {
	embedder embedding.Embedder
	topK     int
	minScore float64
}

func New(embedder embedding.Embedder, topK int, minScore float64) *Retriever {
	if topK < 1 {
		topK = config.SimilarityTopK
	}
	return &Retriever{embedder: embedder, topK: topK, minScore: minScore}
}

// Retrieve embeds the question and returns up to topK chunks scoring at least
// minScore, best first. No match is a valid, empty result.
func (r *Retriever) Retrieve(ctx context.Context, idx Searcher, question string) ([]commonModels.ScoredChunk, error) {
	loggr := logger.WithTrace(ctx)

	vector, err := r.embedder.GetEmbedding(ctx, question)
	if err != nil {
		return nil, ragErrors.Wrap(ragErrors.ErrRetrieval, err, "embedding question")
	}

	hits, err := idx.Search(vector, r.topK)
	if err != nil {
		return nil, ragErrors.Wrap(ragErrors.ErrRetrieval, err, "searching index")
	}

	kept := make([]commonModels.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		if h.Score < r.minScore {
			// hits are sorted, nothing after this one can pass
			break
		}
		kept = append(kept, h)
	}
	loggr.Debug("Retrieved chunks", "candidates", len(hits), "kept", len(kept), "minScore", r.minScore)
	return kept, nil
}

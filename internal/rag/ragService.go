package rag

import (
	"context"
	"strings"
	"time"

	"github.com/akolanti/KnowledgeAPI/internal/domain/answerModel"
	"github.com/akolanti/KnowledgeAPI/internal/domain/commonModels"
	"github.com/akolanti/KnowledgeAPI/internal/domain/ragErrors"
	"github.com/akolanti/KnowledgeAPI/internal/metrics"
	"github.com/akolanti/KnowledgeAPI/internal/rag/cache"
	"github.com/akolanti/KnowledgeAPI/internal/rag/retriever"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
)

// Service is what the transports (HTTP, MCP, CLI) call. The index, retriever,
// synthesizer and cache stay behind it.
type Service interface {
	Ask(ctx context.Context, question string) (answerModel.StructuredAnswer, error)
	IndexStatus(ctx context.Context) IndexStatus
	Rebuild(ctx context.Context) error
	EnsureIndex(ctx context.Context) error
}

type Retriever interface {
	Retrieve(ctx context.Context, idx retriever.Searcher, question string) ([]commonModels.ScoredChunk, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, question string, results []commonModels.ScoredChunk) (answerModel.StructuredAnswer, error)
}

type service struct {
	indexes     *IndexManager
	retriever   Retriever
	synthesizer Synthesizer
	cache       cache.ResponseCache
	logger      *logger_i.Logger
}

func NewService(indexes *IndexManager, r Retriever, s Synthesizer, c cache.ResponseCache) Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &service{
		indexes:     indexes,
		retriever:   r,
		synthesizer: s,
		cache:       c,
		logger:      logger_i.NewLogger("RAG Service"),
	}
}

// Ask runs one query: cache check, then index, retrieval, synthesis and cache store.
func (s *service) Ask(ctx context.Context, question string) (answerModel.StructuredAnswer, error) {
	start := time.Now()
	q := newQuery(ctx, s.logger, question)

	ans, err := s.ask(ctx, q)
	if err != nil {
		q.fail(err)
		metrics.CaptureQueryMetrics("error", time.Since(start))
		return answerModel.StructuredAnswer{}, err
	}
	metrics.CaptureQueryMetrics("success", time.Since(start))
	return ans, nil
}

func (s *service) ask(ctx context.Context, q *query) (answerModel.StructuredAnswer, error) {
	question := strings.TrimSpace(q.question)
	if question == "" {
		return answerModel.StructuredAnswer{}, ragErrors.Validation("query is required")
	}
	key := cache.KeyFor(question)

	if cached, found := s.executeCacheCheckStep(ctx, q, key); found {
		q.advance(stateDone)
		return cached, nil
	}

	idx, err := s.executeIndexStep(ctx, q)
	if err != nil {
		return answerModel.StructuredAnswer{}, err
	}

	results, err := s.executeRetrieveStep(ctx, q, idx, question)
	if err != nil {
		return answerModel.StructuredAnswer{}, err
	}

	ans, err := s.executeSynthesizeStep(ctx, q, question, results)
	if err != nil {
		return answerModel.StructuredAnswer{}, err
	}
	ans.Elapsed = time.Since(q.started)
	ans.QueryTime = answerModel.FormatQueryTime(ans.Elapsed)

	s.executeCacheStoreStep(ctx, q, key, ans)
	q.advance(stateDone)
	return ans, nil
}

func (s *service) IndexStatus(ctx context.Context) IndexStatus {
	return s.indexes.Status(ctx)
}

func (s *service) Rebuild(ctx context.Context) error {
	return s.indexes.Rebuild(ctx)
}

func (s *service) EnsureIndex(ctx context.Context) error {
	_, err := s.indexes.Get(ctx)
	return err
}

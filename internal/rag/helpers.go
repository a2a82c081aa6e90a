package rag

import (
	"context"
	"time"

	"github.com/akolanti/KnowledgeAPI/internal/domain/answerModel"
	"github.com/akolanti/KnowledgeAPI/internal/domain/commonModels"
	"github.com/akolanti/KnowledgeAPI/internal/metrics"
	"github.com/akolanti/KnowledgeAPI/internal/rag/vectorDB"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
)

type queryState string

const (
	stateStart      queryState = "START"
	stateCacheCheck queryState = "CACHE_CHECK"
	stateIndexReady queryState = "INDEX_READY"
	stateRetrieve   queryState = "RETRIEVE"
	stateSynthesize queryState = "SYNTHESIZE"
	stateCacheStore queryState = "CACHE_STORE"
	stateDone       queryState = "DONE"
	stateFailed     queryState = "FAILED"
)

// query tracks one pass through the pipeline.
type query struct {
	question string
	state    queryState
	started  time.Time
	log      *logger_i.Logger
}

func newQuery(ctx context.Context, base *logger_i.Logger, question string) *query {
	q := &query{question: question, state: stateStart, started: time.Now(), log: base.WithTrace(ctx)}
	q.log.Debug("Ask", "state", q.state)
	return q
}

func (q *query) advance(next queryState) {
	q.state = next
	q.log.Debug("Ask", "state", q.state, "elapsed", time.Since(q.started))
}

func (q *query) fail(err error) {
	q.log.Error("Query failed", "failedAt", q.state, "error", err)
	q.state = stateFailed
}

func (s *service) executeCacheCheckStep(ctx context.Context, q *query, key string) (answerModel.StructuredAnswer, bool) {
	q.advance(stateCacheCheck)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(start)) }()

	ans, found := s.cache.Get(ctx, key)
	if found {
		metrics.CacheHit()
		q.log.Info("Cache hit")
	} else {
		metrics.CacheMiss()
	}
	return ans, found
}

func (s *service) executeIndexStep(ctx context.Context, q *query) (*vectorDB.Index, error) {
	q.advance(stateIndexReady)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("index_ready", time.Since(start)) }()

	return s.indexes.Get(ctx)
}

func (s *service) executeRetrieveStep(ctx context.Context, q *query, idx *vectorDB.Index, question string) ([]commonModels.ScoredChunk, error) {
	q.advance(stateRetrieve)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("retrieval", time.Since(start)) }()

	return s.retriever.Retrieve(ctx, idx, question)
}

func (s *service) executeSynthesizeStep(ctx context.Context, q *query, question string, results []commonModels.ScoredChunk) (answerModel.StructuredAnswer, error) {
	q.advance(stateSynthesize)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	return s.synthesizer.Synthesize(ctx, question, results)
}

func (s *service) executeCacheStoreStep(ctx context.Context, q *query, key string, ans answerModel.StructuredAnswer) {
	q.advance(stateCacheStore)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_store", time.Since(start)) }()

	s.cache.Set(ctx, key, ans)
}

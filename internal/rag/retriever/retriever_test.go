package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/akolanti/KnowledgeAPI/internal/domain/commonModels"
	"github.com/akolanti/KnowledgeAPI/internal/domain/ragErrors"
)

type mockEmbedder struct {
	OnGetEmbedding func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	return m.OnGetEmbedding(ctx, text)
}

func (m *mockEmbedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("not used")
}

func (m *mockEmbedder) ModelName() string { return "mock" }

func (m *mockEmbedder) Dimension() int { return 0 }

type mockSearcher struct {
	OnSearch func(query []float32, k int) ([]commonModels.ScoredChunk, error)
}

func (m *mockSearcher) Search(query []float32, k int) ([]commonModels.ScoredChunk, error) {
	return m.OnSearch(query, k)
}

func scored(id string, score float64) commonModels.ScoredChunk {
	return commonModels.ScoredChunk{Chunk: commonModels.Chunk{Id: id}, Score: score}
}

func okEmbedder() *mockEmbedder {
	return &mockEmbedder{OnGetEmbedding: func(context.Context, string) ([]float32, error) {
		return []float32{1, 0}, nil
	}}
}

func TestRetrieve_AppliesCutoff(t *testing.T) {
	var gotK int
	searcher := &mockSearcher{OnSearch: func(_ []float32, k int) ([]commonModels.ScoredChunk, error) {
		gotK = k
		return []commonModels.ScoredChunk{scored("a", 0.91), scored("b", 0.7), scored("c", 0.69)}, nil
	}}

	r := New(okEmbedder(), 3, 0.7)
	res, err := r.Retrieve(context.Background(), searcher, "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotK != 3 {
		t.Errorf("expected k=3, got %d", gotK)
	}
	if len(res) != 2 || res[0].Chunk.Id != "a" || res[1].Chunk.Id != "b" {
		t.Errorf("expected [a b], got %+v", res)
	}
}

func TestRetrieve_NothingAboveCutoff(t *testing.T) {
	searcher := &mockSearcher{OnSearch: func([]float32, int) ([]commonModels.ScoredChunk, error) {
		return []commonModels.ScoredChunk{scored("a", 0.2)}, nil
	}}

	res, err := New(okEmbedder(), 3, 0.7).Retrieve(context.Background(), searcher, "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil || len(res) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", res)
	}
}

func TestRetrieve_Failures(t *testing.T) {
	tests := []struct {
		name     string
		embedder *mockEmbedder
		searcher *mockSearcher
	}{
		{
			name: "embedding fails",
			embedder: &mockEmbedder{OnGetEmbedding: func(context.Context, string) ([]float32, error) {
				return nil, errors.New("quota")
			}},
			searcher: &mockSearcher{},
		},
		{
			name:     "search fails",
			embedder: okEmbedder(),
			searcher: &mockSearcher{OnSearch: func([]float32, int) ([]commonModels.ScoredChunk, error) {
				return nil, errors.New("dimension mismatch")
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.embedder, 3, 0.7).Retrieve(context.Background(), tt.searcher, "q")
			if !errors.Is(err, ragErrors.ErrRetrieval) {
				t.Errorf("expected ErrRetrieval, got %v", err)
			}
		})
	}
}

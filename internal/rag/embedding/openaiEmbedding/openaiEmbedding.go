package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/akolanti/KnowledgeAPI/internal/rag/embedding"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var logger = logger_i.NewLogger("openai_embedding")

type client struct {
	api       openai.Client
	model     string
	dimension int
}

// New builds an OpenAI embedder. Extra request options are appended last, so they
// can point the client at a proxy or a test server.
func New(apiKey, model string, dimension int, httpClient *http.Client, extra ...option.RequestOption) (embedding.Embedder, error) {
	if apiKey == "" {
		return nil, errors.New("openai embedding: missing api key")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	opts = append(opts, extra...)
	logger.Info("OpenAI embedding client created", "model", model)
	return &client{api: openai.NewClient(opts...), model: model, dimension: dimension}, nil
}

func (c *client) ModelName() string { return c.model }

func (c *client) Dimension() int {
	if c.customDimensions() {
		return c.dimension
	}
	return 0
}

// only the v3 models accept a custom output size
func (c *client) customDimensions() bool {
	return strings.HasPrefix(c.model, "text-embedding-3") && c.dimension > 0
}

func (c *client) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.BatchEmbedding(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	logger.WithTrace(ctx).Debug("Embedding batch", "size", len(texts))

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(c.model),
	}
	if c.customDimensions() {
		params.Dimensions = openai.Int(int64(c.dimension))
	}

	resp, err := c.api.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embedding: got %d vectors for %d texts", len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = toFloat32(d.Embedding)
	}
	return out, nil
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}

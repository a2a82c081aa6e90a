package googleEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/akolanti/KnowledgeAPI/internal/rag/embedding"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
	retryAfter   = 5 * time.Second
)

var logger = logger_i.NewLogger("google_embedding")
var once sync.Once
var embeddingClient *client
var initErr error

type client struct {
	genAi     *genai.Client
	model     string
	dimension int32
}

// GetGoogleEmbeddingClient returns the process wide Gemini embedder, creating it on
// first use. genai clients hold no connections of their own, so there is nothing
// to close; the shared http client is owned by the caller.
func GetGoogleEmbeddingClient(ctx context.Context, modelName, apiKey string, dimension int, httpClient *http.Client) (embedding.Embedder, error) {
	once.Do(func() {
		embeddingClient, initErr = newGoogleEmbedder(ctx, modelName, apiKey, int32(dimension), httpClient)
	})
	if initErr != nil {
		return nil, initErr
	}
	return embeddingClient, nil
}

func newGoogleEmbedder(ctx context.Context, modelName, apiKey string, dimension int32, httpClient *http.Client) (*client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini embedding: missing api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}
	logger.Info("Google Embedding client created", "model", modelName, "dimension", dimension)
	return &client{genAi: c, model: modelName, dimension: dimension}, nil
}

func (c *client) ModelName() string { return c.model }

func (c *client) Dimension() int { return int(c.dimension) }

func (c *client) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	res, err := c.embedWithRetry(ctx, genai.Text(text), taskQuery)
	if err != nil {
		return nil, err
	}
	if len(res.Embeddings) == 0 || res.Embeddings[0] == nil {
		return nil, errors.New("gemini embedding: empty response")
	}
	return res.Embeddings[0].Values, nil
}

func (c *client) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	log := logger.WithTrace(ctx)
	log.Debug("Embedding batch", "size", len(texts))

	res, err := c.embedWithRetry(ctx, getContent(texts), taskDocument)
	if err != nil {
		return nil, err
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embedding: got %d vectors for %d texts", len(res.Embeddings), len(texts))
	}

	out := make([][]float32, len(res.Embeddings))
	for i, e := range res.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("gemini embedding: missing vector %d", i)
		}
		out[i] = e.Values
	}
	return out, nil
}

// embedWithRetry retries once after a rate limit response.
func (c *client) embedWithRetry(ctx context.Context, content []*genai.Content, task string) (*genai.EmbedContentResponse, error) {
	res, err := c.doCall(ctx, content, task)
	if err != nil && doRetry(err, logger) {
		logger.Debug("Retrying embedding call", "after", retryAfter)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryAfter):
		}
		res, err = c.doCall(ctx, content, task)
	}
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}
	return res, nil
}

func (c *client) doCall(ctx context.Context, content []*genai.Content, task string) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{
		OutputDimensionality: &c.dimension,
		TaskType:             task,
	})
}

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))
	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}

func doRetry(err error, log *logger_i.Logger) bool {
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		log.Warn("Rate limit hit", "error", err)
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		log.Warn("Rate limit hit", "error", err)
		return true
	}
	return false
}

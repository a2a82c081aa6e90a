package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/akolanti/KnowledgeAPI/internal/rag/llm"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client    *genai.Client
	modelName string
}

var logger = logger_i.NewLogger("llm_gemini")
var geminiClient *llmClient
var initErr error
var once sync.Once

// GetGeminiClient returns the process wide Gemini provider, creating it on first use.
func GetGeminiClient(ctx context.Context, modelName, apiKey string, httpClient *http.Client) (llm.Provider, error) {
	once.Do(func() {
		geminiClient, initErr = newGeminiClient(ctx, modelName, apiKey, httpClient)
	})
	if initErr != nil {
		return nil, initErr
	}
	return geminiClient, nil
}

func newGeminiClient(ctx context.Context, modelName, apiKey string, httpClient *http.Client) (*llmClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: missing api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	logger.Info("Gemini client created", "model", modelName)
	return &llmClient{client: c, modelName: modelName}, nil
}

func (c *llmClient) ModelName() string { return c.modelName }

func (c *llmClient) Complete(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	logger.WithTrace(ctx).Debug("Calling Gemini", "model", c.modelName)

	contentConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if opts.MaxTokens > 0 {
		contentConfig.MaxOutputTokens = int32(opts.MaxTokens)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(prompt), contentConfig)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return result.Text(), nil
}

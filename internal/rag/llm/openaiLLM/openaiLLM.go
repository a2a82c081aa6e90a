package openaiLLM

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/akolanti/KnowledgeAPI/internal/rag/llm"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var logger = logger_i.NewLogger("llm_openai")

type client struct {
	api   openai.Client
	model string
}

// New builds a chat completion provider. Extra request options are applied last.
func New(apiKey, model string, httpClient *http.Client, extra ...option.RequestOption) (llm.Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai: missing api key")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	opts = append(opts, extra...)
	logger.Info("OpenAI client created", "model", model)
	return &client{api: openai.NewClient(opts...), model: model}, nil
}

func (c *client) ModelName() string { return c.model }

func (c *client) Complete(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	logger.WithTrace(ctx).Debug("Calling OpenAI", "model", c.model)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

package anthropicLLM

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/akolanti/KnowledgeAPI/internal/config"
	"github.com/akolanti/KnowledgeAPI/internal/rag/llm"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

var logger = logger_i.NewLogger("llm_anthropic")

type client struct {
	api   anthropic.Client
	model string
}

func New(apiKey, model string, httpClient *http.Client, extra ...option.RequestOption) (llm.Provider, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: missing api key")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	opts = append(opts, extra...)
	logger.Info("Anthropic client created", "model", model)
	return &client{api: anthropic.NewClient(opts...), model: model}, nil
}

func (c *client) ModelName() string { return c.model }

func (c *client) Complete(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	logger.WithTrace(ctx).Debug("Calling Anthropic", "model", c.model)

	// the messages API requires max_tokens
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = config.ModelMaxTokens
	}

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

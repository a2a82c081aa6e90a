package llm

import "context"

// Options tune a single completion.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Provider turns a fully built prompt into model output. Implementations return the
// raw text; deciding whether it is usable is left to the caller.
type Provider interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
	ModelName() string
}

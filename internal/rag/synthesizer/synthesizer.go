package synthesizer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/KnowledgeAPI/internal/config"
	"github.com/akolanti/KnowledgeAPI/internal/domain/answerModel"
	"github.com/akolanti/KnowledgeAPI/internal/domain/commonModels"
	"github.com/akolanti/KnowledgeAPI/internal/domain/ragErrors"
	"github.com/akolanti/KnowledgeAPI/internal/rag/llm"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
)

var logger = logger_i.NewLogger("Synthesizer")

type Synthesizer struct {
	provider llm.Provider
	opts     llm.Options
	timeout  time.Duration
}

func New(provider llm.Provider, opts llm.Options, timeout time.Duration) *Synthesizer {
	if timeout <= 0 {
		timeout = config.LLMTimeout
	}
	return &Synthesizer{provider: provider, opts: opts, timeout: timeout}
}

// Synthesize asks the model once. A provider error, a timeout or a blank reply all
// fail the query; nothing is retried here.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, results []commonModels.ScoredChunk) (answerModel.StructuredAnswer, error) {
	loggr := logger.WithTrace(ctx)
	prompt := BuildPrompt(question, results)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.provider.Complete(callCtx, prompt, s.opts)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("no reply within %s: %w", s.timeout, err)
		}
		loggr.Error("Generation failed", "model", s.provider.ModelName(), "error", err)
		return answerModel.StructuredAnswer{}, ragErrors.Wrap(ragErrors.ErrGeneration, err, "model %s", s.provider.ModelName())
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return answerModel.StructuredAnswer{}, ragErrors.Wrap(ragErrors.ErrGeneration, nil, "model %s returned an empty answer", s.provider.ModelName())
	}

	return answerModel.StructuredAnswer{
		Answer:  out,
		Sources: Attribute(results),
	}, nil
}

// Attribute converts ranked chunks into source attributions.
func Attribute(results []commonModels.ScoredChunk) []answerModel.SourceAttribution {
	sources := make([]answerModel.SourceAttribution, len(results))
	for i, r := range results {
		score := r.Score
		sources[i] = answerModel.SourceAttribution{
			Text:       r.Chunk.Text,
			Score:      &score,
			DocumentId: r.Chunk.DocumentId,
			FileName:   sourceLabel(r.Chunk.Metadata, i),
			Metadata:   r.Chunk.Metadata,
		}
	}
	return sources
}

func sourceLabel(meta commonModels.DocMetadata, rank int) string {
	if meta.FileName != "" {
		return meta.FileName
	}
	if meta.FilePath != "" {
		return filepath.Base(meta.FilePath)
	}
	return fmt.Sprintf("source-%d", rank+1)
}

// Package cache stores finished answers keyed by the normalised question.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/akolanti/KnowledgeAPI/internal/domain/answerModel"
)

// ResponseCache is safe for concurrent use. Lookups never fail: a backend error is
// logged and reported as a miss, a failed store is logged and dropped.
type ResponseCache interface {
	Get(ctx context.Context, key string) (answerModel.StructuredAnswer, bool)
	Set(ctx context.Context, key string, answer answerModel.StructuredAnswer)
}

// KeyFor hashes the question after trimming it and collapsing inner whitespace.
// Case is preserved.
func KeyFor(question string) string {
	normalised := strings.Join(strings.Fields(question), " ")
	sum := sha256.Sum256([]byte(normalised))
	return hex.EncodeToString(sum[:])
}

// Noop is used when caching is disabled.
type Noop struct{}

func (Noop) Get(context.Context, string) (answerModel.StructuredAnswer, bool) {
	return answerModel.StructuredAnswer{}, false
}

func (Noop) Set(context.Context, string, answerModel.StructuredAnswer) {}

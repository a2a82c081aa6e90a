// Package localEmbedding is an offline embedder based on feature hashing. Tokens are
// hashed into a fixed number of buckets and the counts are L2 normalised, so texts
// sharing content words land close together under cosine similarity. It needs no
// corpus statistics, which keeps persisted vectors valid across restarts.
package localEmbedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/akolanti/KnowledgeAPI/internal/config"
)

type Embedder struct {
	dimension int
	model     string
}

func New(model string, dimension int) *Embedder {
	if dimension < 1 {
		dimension = config.LocalEmbeddingDimensionality
	}
	if model == "" {
		model = config.LocalEmbeddingModel
	}
	return &Embedder{dimension: dimension, model: model}
}

func (e *Embedder) ModelName() string { return e.model }

func (e *Embedder) Dimension() int { return e.dimension }

func (e *Embedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.embed(text), nil
}

func (e *Embedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e *Embedder) embed(text string) []float32 {
	vec := make([]float32, e.dimension)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dimension)]++
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 || stopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

var stopwords = func() map[string]bool {
	words := strings.Fields(`a an the and or but if then than so such not no nor
		is are was were be been being am do does did done have has had having
		of to in on at by for from with without into onto about over under up down out off
		as that this these those it its it's there here
		what which who whom whose when where why how
		can could should would will shall may might must
		i me my we us our you your he him his she her they them their
		also just very too any all some each every both either neither more most other`)
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}()

package embedding

import "context"

// Embedder maps text to fixed dimension vectors. Implementations must return one
// vector per input text, in input order.
type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
	// Dimension is the configured output size, 0 when the model fixes it.
	Dimension() int
}

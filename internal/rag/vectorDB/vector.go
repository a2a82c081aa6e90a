package vectorDB

import (
	"context"
	"time"

	"github.com/akolanti/KnowledgeAPI/internal/domain/commonModels"
)

// Snapshot is the persisted form of an Index. Chunks carry their embeddings and are
// kept in insertion order.
type Snapshot struct {
	Dimension      int                  `json:"dimension"`
	EmbeddingModel string               `json:"embedding_model"`
	CreatedAt      time.Time            `json:"created_at"`
	Chunks         []commonModels.Chunk `json:"chunks"`
}

// Store persists and restores index snapshots.
//
// Load returns (nil, nil) when nothing has been persisted. A store that holds
// something it cannot read back completely must return an error wrapping
// ragErrors.ErrIndexCorruption instead of a partial snapshot.
type Store interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
	Exists(ctx context.Context) (bool, error)
	Close() error
}

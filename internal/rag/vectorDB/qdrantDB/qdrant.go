package qdrantDB

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/akolanti/KnowledgeAPI/internal/config"
	"github.com/akolanti/KnowledgeAPI/internal/domain/commonModels"
	"github.com/akolanti/KnowledgeAPI/internal/domain/ragErrors"
	"github.com/akolanti/KnowledgeAPI/internal/rag/vectorDB"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
)

var logger = logger_i.NewLogger("Qdrant")

const upsertBatchSize = 256

// Store keeps the index as one Qdrant collection, one point per chunk. Every point
// carries the index level fields (model, creation time, chunk count) so the
// snapshot can be rebuilt from the points alone.
type Store struct {
	client     *qdrant.Client
	collection string
}

func New(cfg config.QdrantSettings) (*Store, error) {
	if cfg.Collection == "" {
		return nil, errors.New("empty collection name")
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		APIKey:   cfg.APIKey,
		UseTLS:   cfg.UseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		return nil, fmt.Errorf("could not instantiate qdrant client: %w", err)
	}
	return &Store{client: client, collection: cfg.Collection}, nil
}

// Save drops and recreates the collection, then upserts every chunk.
func (s *Store) Save(ctx context.Context, snap *vectorDB.Snapshot) error {
	loggr := logger.WithTrace(ctx)

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return err
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
			return fmt.Errorf("dropping collection: %w", err)
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig:  qdrant.NewVectorsConfig(vectorParams(snap.Dimension)),
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	createdAt := snap.CreatedAt.UTC().Format(time.RFC3339Nano)
	for start := 0; start < len(snap.Chunks); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(snap.Chunks))
		points := make([]*qdrant.PointStruct, 0, end-start)
		for seq := start; seq < end; seq++ {
			c := snap.Chunks[seq]
			meta, err := json.Marshal(c.Metadata)
			if err != nil {
				return err
			}
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewID(c.Id),
				Vectors: qdrant.NewVectors(c.Embedding...),
				Payload: qdrant.NewValueMap(map[string]any{
					"seq":             seq,
					"document_id":     c.DocumentId,
					"chunk_index":     c.Index,
					"start":           c.Start,
					"end":             c.End,
					"content":         c.Text,
					"metadata":        string(meta),
					"embedding_model": snap.EmbeddingModel,
					"created_at":      createdAt,
					"chunk_count":     len(snap.Chunks),
				}),
			})
		}

		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			return fmt.Errorf("qdrant upsert failed: %w", err)
		}
		loggr.Debug("Upserted points", "from", start, "to", end)
	}
	return nil
}

// vectorParams uses dot distance: qdrant normalises vectors stored under cosine,
// and the index needs the embeddings back exactly as they were saved.
func vectorParams(dimension int) *qdrant.VectorParams {
	return &qdrant.VectorParams{
		Size:     uint64(dimension),
		Distance: qdrant.Distance_Dot,
	}
}

func (s *Store) Load(ctx context.Context) (*vectorDB.Snapshot, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil || !exists {
		return nil, err
	}

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ragErrors.Corruption(nil, "collection %s exists but holds no points", s.collection)
	}

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Limit:          qdrant.PtrOf(uint32(count)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, err
	}
	return toSnapshot(points)
}

func toSnapshot(points []*qdrant.RetrievedPoint) (*vectorDB.Snapshot, error) {
	type seqChunk struct {
		seq   int64
		chunk commonModels.Chunk
	}

	rows := make([]seqChunk, 0, len(points))
	snap := &vectorDB.Snapshot{}
	var want int64
	for i, p := range points {
		payload := p.GetPayload()
		var c commonModels.Chunk
		c.Id = p.GetId().GetUuid()
		c.DocumentId = payload["document_id"].GetStringValue()
		c.Index = int(payload["chunk_index"].GetIntegerValue())
		c.Start = int(payload["start"].GetIntegerValue())
		c.End = int(payload["end"].GetIntegerValue())
		c.Text = payload["content"].GetStringValue()
		if err := json.Unmarshal([]byte(payload["metadata"].GetStringValue()), &c.Metadata); err != nil {
			return nil, ragErrors.Corruption(err, "decode metadata of point %s", c.Id)
		}
		c.Embedding = p.GetVectors().GetVector().GetData()

		if i == 0 {
			snap.EmbeddingModel = payload["embedding_model"].GetStringValue()
			snap.Dimension = len(c.Embedding)
			want = payload["chunk_count"].GetIntegerValue()
			created, err := time.Parse(time.RFC3339Nano, payload["created_at"].GetStringValue())
			if err != nil {
				return nil, ragErrors.Corruption(err, "invalid creation time")
			}
			snap.CreatedAt = created
		}
		rows = append(rows, seqChunk{seq: payload["seq"].GetIntegerValue(), chunk: c})
	}

	if int64(len(rows)) != want {
		return nil, ragErrors.Corruption(nil, "collection lists %d chunks, found %d", want, len(rows))
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	snap.Chunks = make([]commonModels.Chunk, len(rows))
	for i, r := range rows {
		snap.Chunks[i] = r.chunk
	}
	return snap, nil
}

func (s *Store) Exists(ctx context.Context) (bool, error) {
	return s.client.CollectionExists(ctx, s.collection)
}

func (s *Store) Close() error {
	logger.Info("Shutting down Qdrant")
	if err := s.client.Close(); err != nil {
		logger.Error("could not close Qdrant", "error", err)
		return err
	}
	return nil
}

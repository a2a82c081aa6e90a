package sqliteStore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/KnowledgeAPI/internal/domain/commonModels"
	"github.com/akolanti/KnowledgeAPI/internal/domain/ragErrors"
	"github.com/akolanti/KnowledgeAPI/internal/rag/vectorDB"
)

func sampleSnapshot() *vectorDB.Snapshot {
	return &vectorDB.Snapshot{
		Dimension:      3,
		EmbeddingModel: "test-model",
		CreatedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Chunks: []commonModels.Chunk{
			{
				Id: "b", DocumentId: "doc.txt", Index: 0, Start: 0, End: 5, Text: "hello",
				Metadata:  commonModels.DocMetadata{FileName: "doc.txt", DocType: commonModels.TXT},
				Embedding: []float32{0.1, 0.2, 0.3},
			},
			{
				Id: "a", DocumentId: "doc.txt", Index: 1, Start: 3, End: 9, Text: "lo world",
				Metadata:  commonModels.DocMetadata{FileName: "doc.txt", DocType: commonModels.TXT},
				Embedding: []float32{-1, 0.5, 1e-7},
			},
		},
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "index.db"))
	defer s.Close()

	snap := sampleSnapshot()
	require.NoError(t, s.Save(ctx, snap))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, snap.Dimension, got.Dimension)
	assert.Equal(t, snap.EmbeddingModel, got.EmbeddingModel)
	assert.True(t, snap.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, snap.Chunks, got.Chunks, "order and vectors must survive")
}

func TestSave_ReplacesPreviousIndex(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "index.db"))
	defer s.Close()

	require.NoError(t, s.Save(ctx, sampleSnapshot()))

	smaller := sampleSnapshot()
	smaller.Chunks = smaller.Chunks[:1]
	require.NoError(t, s.Save(ctx, smaller))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Chunks, 1)
}

func TestLoad_Missing(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "index.db"))
	defer s.Close()

	exists, err := s.Exists(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLoad_DetectsMissingRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")
	s := New(path)
	require.NoError(t, s.Save(ctx, sampleSnapshot()))
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec("DELETE FROM chunks WHERE id = 'a'")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s = New(path)
	defer s.Close()
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ragErrors.ErrIndexCorruption)
}

func TestLoad_DetectsTruncatedEmbedding(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")
	s := New(path)
	require.NoError(t, s.Save(ctx, sampleSnapshot()))
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec("UPDATE chunks SET embedding = x'0000' WHERE id = 'b'")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s = New(path)
	defer s.Close()
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ragErrors.ErrIndexCorruption)
}

func TestFloat32Encoding(t *testing.T) {
	in := []float32{0, -0.5, 3.25, 1e-30}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
}

func TestExists_RequiresCommittedSave(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	// a database file with the schema but no committed index
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, schema)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s := New(path)
	defer s.Close()

	exists, err := s.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.Save(ctx, sampleSnapshot()))
	exists, err = s.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestExists_EmptyDatabaseFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	require.NoError(t, db.PingContext(ctx))
	require.NoError(t, db.Close())

	s := New(path)
	defer s.Close()

	exists, err := s.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}

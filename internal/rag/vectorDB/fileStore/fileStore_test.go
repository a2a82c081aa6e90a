package fileStore

import (
	"context"
	"os"
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
		Dimension:      2,
		EmbeddingModel: "test-model",
		CreatedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Chunks: []commonModels.Chunk{
			{Id: "1", DocumentId: "a.txt", Text: "alpha", Embedding: []float32{1, 0},
				Metadata: commonModels.DocMetadata{FileName: "a.txt", DocType: commonModels.TXT}},
			{Id: "2", DocumentId: "b.md", Text: "beta", Embedding: []float32{0.6, 0.8},
				Metadata: commonModels.DocMetadata{FileName: "b.md", DocType: commonModels.MD}},
		},
	}
}

func TestSaveLoad_SearchIdentical(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	before, err := vectorDB.FromSnapshot(sampleSnapshot())
	require.NoError(t, err)
	require.NoError(t, vectorDB.Persist(ctx, before, s))

	after, err := vectorDB.Restore(ctx, s, "test-model", 0)
	require.NoError(t, err)
	require.NotNil(t, after)

	q := []float32{0.9, 0.1}
	want, err := before.Search(q, 2)
	require.NoError(t, err)
	got, err := after.Search(q, 2)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoad_Empty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nothing-here"))

	exists, err := s.Exists(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)

	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestLoad_ChunksWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, chunksFile), []byte("{}\n"), 0o600))
	s := New(dir)

	exists, err := s.Exists(context.Background())
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, ragErrors.ErrIndexCorruption)
}

func TestLoad_TamperedChunks(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.Save(ctx, sampleSnapshot()))

	f, err := os.OpenFile(filepath.Join(dir, chunksFile), os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString(`{"id":"3","embedding":[0,1]}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ragErrors.ErrIndexCorruption)
}

func TestLoad_GarbageManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifestFile), []byte("not json"), 0o600))

	_, err := New(dir).Load(context.Background())
	assert.ErrorIs(t, err, ragErrors.ErrIndexCorruption)
}

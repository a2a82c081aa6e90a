// Package fileStore persists an index as a directory holding chunks.jsonl (one
// chunk with its embedding per line) and manifest.json. The manifest is written
// last and carries a checksum of the chunk file, so a directory with chunks but no
// manifest, or with a manifest that does not match, is an interrupted or damaged
// save.
package fileStore

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/akolanti/KnowledgeAPI/internal/domain/commonModels"
	"github.com/akolanti/KnowledgeAPI/internal/domain/ragErrors"
	"github.com/akolanti/KnowledgeAPI/internal/rag/vectorDB"
)

const (
	manifestFile  = "manifest.json"
	chunksFile    = "chunks.jsonl"
	formatVersion = 1
	maxLineBytes  = 64 << 20
)

type manifest struct {
	FormatVersion  int       `json:"format_version"`
	Dimension      int       `json:"dimension"`
	EmbeddingModel string    `json:"embedding_model"`
	ChunkCount     int       `json:"chunk_count"`
	Checksum       string    `json:"checksum"`
	CreatedAt      time.Time `json:"created_at"`
}

type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Save(ctx context.Context, snap *vectorDB.Snapshot) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return err
	}

	sum, err := s.writeChunks(ctx, snap.Chunks)
	if err != nil {
		return err
	}

	m := manifest{
		FormatVersion:  formatVersion,
		Dimension:      snap.Dimension,
		EmbeddingModel: snap.EmbeddingModel,
		ChunkCount:     len(snap.Chunks),
		Checksum:       sum,
		CreatedAt:      snap.CreatedAt,
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(s.dir, manifestFile), func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func (s *Store) writeChunks(ctx context.Context, chunks []commonModels.Chunk) (string, error) {
	h := sha256.New()
	err := writeAtomic(filepath.Join(s.dir, chunksFile), func(w io.Writer) error {
		enc := json.NewEncoder(io.MultiWriter(w, h))
		for _, c := range chunks {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := enc.Encode(c); err != nil {
				return err
			}
		}
		return nil
	})
	return hex.EncodeToString(h.Sum(nil)), err
}

// writeAtomic writes to a temp file in the same directory and renames it into place.
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *Store) Load(ctx context.Context) (*vectorDB.Snapshot, error) {
	m, err := s.readManifest()
	if err != nil {
		return nil, err
	}
	if m == nil {
		if _, err := os.Stat(filepath.Join(s.dir, chunksFile)); err == nil {
			return nil, ragErrors.Corruption(nil, "%s exists without %s", chunksFile, manifestFile)
		}
		return nil, nil
	}
	if m.FormatVersion != formatVersion {
		return nil, ragErrors.Corruption(nil, "unsupported index format version %d", m.FormatVersion)
	}

	f, err := os.Open(filepath.Join(s.dir, chunksFile))
	if err != nil {
		return nil, ragErrors.Corruption(err, "open %s", chunksFile)
	}
	defer f.Close()

	h := sha256.New()
	scanner := bufio.NewScanner(io.TeeReader(f, h))
	scanner.Buffer(make([]byte, 0, 1<<20), maxLineBytes)

	chunks := make([]commonModels.Chunk, 0, m.ChunkCount)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var c commonModels.Chunk
		if err := json.Unmarshal(scanner.Bytes(), &c); err != nil {
			return nil, ragErrors.Corruption(err, "decode chunk %d", len(chunks))
		}
		chunks = append(chunks, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, ragErrors.Corruption(err, "read %s", chunksFile)
	}

	if sum := hex.EncodeToString(h.Sum(nil)); sum != m.Checksum {
		return nil, ragErrors.Corruption(nil, "checksum mismatch for %s", chunksFile)
	}
	if len(chunks) != m.ChunkCount {
		return nil, ragErrors.Corruption(nil, "manifest lists %d chunks, found %d", m.ChunkCount, len(chunks))
	}

	return &vectorDB.Snapshot{
		Dimension:      m.Dimension,
		EmbeddingModel: m.EmbeddingModel,
		CreatedAt:      m.CreatedAt,
		Chunks:         chunks,
	}, nil
}

func (s *Store) readManifest() (*manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, manifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, ragErrors.Corruption(err, "read %s", manifestFile)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, ragErrors.Corruption(err, "decode %s", manifestFile)
	}
	return &m, nil
}

// Exists reports whether a manifest or chunk file is present, valid or not.
func (s *Store) Exists(context.Context) (bool, error) {
	for _, name := range []string{manifestFile, chunksFile} {
		_, err := os.Stat(filepath.Join(s.dir, name))
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("stat %s: %w", name, err)
		}
	}
	return false, nil
}

func (s *Store) Close() error { return nil }

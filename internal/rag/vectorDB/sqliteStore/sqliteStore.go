package sqliteStore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/akolanti/KnowledgeAPI/internal/domain/commonModels"
	"github.com/akolanti/KnowledgeAPI/internal/domain/ragErrors"
	"github.com/akolanti/KnowledgeAPI/internal/rag/vectorDB"
)

//go:embed schema.sql
var schema string

const (
	keyDimension  = "dimension"
	keyModel      = "embedding_model"
	keyChunkCount = "chunk_count"
	keyCreatedAt  = "created_at"
)

// Store keeps the whole index in one SQLite file. The database is opened lazily so
// that checking an empty storage directory does not create it.
type Store struct {
	path string
	mu   sync.Mutex
	db   *sql.DB
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) open() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", s.path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.db = db
	return db, nil
}

func (s *Store) fileExists() (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Save replaces the stored index in a single transaction.
func (s *Store) Save(ctx context.Context, snap *vectorDB.Snapshot) error {
	db, err := s.open()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM index_meta"); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks
		(seq, id, document_id, chunk_index, start_offset, end_offset, text, metadata, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for seq, c := range snap.Chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, seq, c.Id, c.DocumentId, c.Index, c.Start, c.End, c.Text, string(meta), float32SliceToBytes(c.Embedding)); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.Id, err)
		}
	}

	meta := map[string]string{
		keyDimension:  strconv.Itoa(snap.Dimension),
		keyModel:      snap.EmbeddingModel,
		keyChunkCount: strconv.Itoa(len(snap.Chunks)),
		keyCreatedAt:  snap.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT INTO index_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) Load(ctx context.Context) (*vectorDB.Snapshot, error) {
	exists, err := s.fileExists()
	if err != nil || !exists {
		return nil, err
	}
	db, err := s.open()
	if err != nil {
		return nil, err
	}

	meta, err := readMeta(ctx, db)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		// writes are transactional, so no metadata means nothing was ever committed
		return nil, nil
	}

	snap := &vectorDB.Snapshot{EmbeddingModel: meta[keyModel]}
	if snap.Dimension, err = strconv.Atoi(meta[keyDimension]); err != nil {
		return nil, ragErrors.Corruption(err, "invalid dimension")
	}
	count, err := strconv.Atoi(meta[keyChunkCount])
	if err != nil {
		return nil, ragErrors.Corruption(err, "invalid chunk count")
	}
	if snap.CreatedAt, err = time.Parse(time.RFC3339Nano, meta[keyCreatedAt]); err != nil {
		return nil, ragErrors.Corruption(err, "invalid creation time")
	}

	rows, err := db.QueryContext(ctx, `SELECT id, document_id, chunk_index, start_offset, end_offset, text, metadata, embedding
		FROM chunks ORDER BY seq`)
	if err != nil {
		return nil, ragErrors.Corruption(err, "query chunks")
	}
	defer rows.Close()

	snap.Chunks = make([]commonModels.Chunk, 0, count)
	for rows.Next() {
		var c commonModels.Chunk
		var metaJSON string
		var blob []byte
		if err := rows.Scan(&c.Id, &c.DocumentId, &c.Index, &c.Start, &c.End, &c.Text, &metaJSON, &blob); err != nil {
			return nil, ragErrors.Corruption(err, "scan chunk")
		}
		if err := json.Unmarshal([]byte(metaJSON), &c.Metadata); err != nil {
			return nil, ragErrors.Corruption(err, "decode metadata of chunk %s", c.Id)
		}
		if len(blob) != snap.Dimension*4 {
			return nil, ragErrors.Corruption(nil, "chunk %s embedding has %d bytes, want %d", c.Id, len(blob), snap.Dimension*4)
		}
		c.Embedding = bytesToFloat32Slice(blob)
		snap.Chunks = append(snap.Chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, ragErrors.Corruption(err, "read chunks")
	}
	if len(snap.Chunks) != count {
		return nil, ragErrors.Corruption(nil, "metadata lists %d chunks, found %d", count, len(snap.Chunks))
	}
	return snap, nil
}

func readMeta(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM index_meta")
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return nil, nil
		}
		return nil, ragErrors.Corruption(err, "read index metadata")
	}
	defer rows.Close()

	meta := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, ragErrors.Corruption(err, "scan index metadata")
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, ragErrors.Corruption(err, "read index metadata")
	}
	if len(meta) == 0 {
		return nil, nil
	}
	return meta, nil
}

// Exists reports whether a save has committed. The file alone is not enough: it
// is created as soon as the database is opened.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	exists, err := s.fileExists()
	if err != nil || !exists {
		return false, err
	}
	db, err := s.open()
	if err != nil {
		return false, err
	}
	meta, err := readMeta(ctx, db)
	if err != nil {
		return false, err
	}
	return meta != nil, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func float32SliceToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32Slice(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

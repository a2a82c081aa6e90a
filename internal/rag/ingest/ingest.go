package ingest

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/KnowledgeAPI/internal/config"
	"github.com/akolanti/KnowledgeAPI/internal/domain/commonModels"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
)

var logger = logger_i.NewLogger("Document Ingestion")

// Loader scans the data directory and turns every supported file into a Document.
type Loader struct {
	dataDir string
	now     func() time.Time
}

func NewLoader(dataDir string) *Loader {
	if dataDir == "" {
		dataDir = config.DataDir
	}
	return &Loader{dataDir: dataDir, now: time.Now}
}

// Load walks the data directory recursively in lexical order. Files with a
// disallowed extension are ignored; files that fail extraction are logged and
// skipped. A missing data directory is created and reported as empty.
func (l *Loader) Load(ctx context.Context) ([]commonModels.Document, error) {
	log := logger.WithTrace(ctx)

	if _, err := os.Stat(l.dataDir); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(l.dataDir, 0o750); err != nil {
			return nil, err
		}
		log.Info("Created data directory", "dir", l.dataDir)
		return nil, nil
	}

	ingestedAt := l.now()
	var docs []commonModels.Document
	err := filepath.WalkDir(l.dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != l.dataDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		docType := commonModels.DocTypeOf(path)
		if docType == commonModels.ERR {
			log.Debug("Skipping unsupported file", "path", path)
			return nil
		}

		doc, err := l.loadDocument(path, d, docType, ingestedAt)
		if err != nil {
			log.Warn("Skipping document that failed extraction", "path", path, "error", err)
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("Loaded documents", "count", len(docs), "dir", l.dataDir)
	return docs, nil
}

func (l *Loader) loadDocument(path string, d fs.DirEntry, docType commonModels.DocType, ingestedAt time.Time) (commonModels.Document, error) {
	info, err := d.Info()
	if err != nil {
		return commonModels.Document{}, err
	}

	ex, err := extractText(path, docType)
	if err != nil {
		return commonModels.Document{}, err
	}

	meta := commonModels.DocMetadata{
		FileName:   d.Name(),
		FilePath:   path,
		DocType:    docType,
		IngestedAt: ingestedAt,
		FileSize:   info.Size(),
		PageCount:  ex.pageCount,
	}
	if ex.title != "" {
		meta.Extra = map[string]string{"title": ex.title}
	}

	return commonModels.Document{
		Id:       documentID(l.dataDir, path),
		Text:     ex.text,
		Metadata: meta,
	}, nil
}

// documentID is the slash separated path relative to the data directory.
func documentID(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}

package documentStore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/akolanti/KnowledgeAPI/internal/config"
	"github.com/akolanti/KnowledgeAPI/internal/domain/ragErrors"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
)

var logger = logger_i.NewLogger("Document Store")

type DocumentInfo struct {
	Filename     string    `json:"filename"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	Type         string    `json:"type"`
}

// Library is the data directory seen as a flat list of uploadable documents.
type Library struct {
	dir      string
	maxBytes int64
}

func New(dir string, maxBytes int64) *Library {
	if maxBytes <= 0 {
		maxBytes = config.MaxUploadBytes
	}
	return &Library{dir: dir, maxBytes: maxBytes}
}

// Save stores r under a sanitised version of filename and returns the stored name.
// An existing file with that name is replaced.
func (l *Library) Save(filename string, r io.Reader) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", ragErrors.Validation("no selected file")
	}
	if !Allowed(filename) {
		return "", ragErrors.Validation("file type not allowed. Allowed types: %s", strings.Join(config.AllowedExtensions, ", "))
	}
	name := SecureFilename(filename)
	if name == "" || !Allowed(name) {
		return "", ragErrors.Validation("invalid file name %q", filename)
	}

	if err := os.MkdirAll(l.dir, 0o750); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(r, l.maxBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("writing upload: %w", err)
	}
	if n > l.maxBytes {
		return "", ragErrors.Validation("file exceeds the %d byte limit", l.maxBytes)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(l.dir, name)); err != nil {
		return "", err
	}
	logger.Info("Document uploaded", "filename", name, "bytes", n)
	return name, nil
}

// List returns the top level documents with an allowed extension, sorted by name.
// A missing directory is an empty library.
func (l *Library) List() ([]DocumentInfo, error) {
	entries, err := os.ReadDir(l.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []DocumentInfo{}, nil
	}
	if err != nil {
		return nil, err
	}

	docs := make([]DocumentInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || !Allowed(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			logger.Warn("Skipping unreadable file", "file", e.Name(), "error", err)
			continue
		}
		docs = append(docs, DocumentInfo{
			Filename:     e.Name(),
			Size:         info.Size(),
			LastModified: info.ModTime(),
			Type:         extension(e.Name()),
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Filename < docs[j].Filename })
	return docs, nil
}

func (l *Library) HasDocuments() bool {
	docs, err := l.List()
	return err == nil && len(docs) > 0
}

func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

func Allowed(name string) bool {
	return slices.Contains(config.AllowedExtensions, extension(name))
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces a client supplied name to a plain ASCII file name with no
// directory parts: separators become spaces, whitespace runs become underscores,
// anything outside [A-Za-z0-9_.-] is dropped along with leading and trailing dots
// and underscores.
func SecureFilename(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

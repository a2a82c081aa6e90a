package commonModels

import (
	"path/filepath"
	"strings"
	"time"
)

type DocType string

const (
	TXT  DocType = "txt"
	PDF  DocType = "pdf"
	MD   DocType = "md"
	HTML DocType = "html"
	CSV  DocType = "csv"
	JSON DocType = "json"
	DOCX DocType = "docx"
	ERR  DocType = "error"
)

var allowedDocTypes = map[DocType]bool{TXT: true, PDF: true, MD: true, HTML: true, CSV: true, JSON: true, DOCX: true}

// DocTypeOf infers the document type from the file extension. Unsupported
// extensions map to ERR.
func DocTypeOf(path string) DocType {
	ext := DocType(strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")))
	if allowedDocTypes[ext] {
		return ext
	}
	return ERR
}

// DocMetadata carries the fields the pipeline actually reads, plus an open map for
// provider specific extras.
type DocMetadata struct {
	FileName   string            `json:"file_name,omitempty"`
	FilePath   string            `json:"file_path,omitempty"`
	DocType    DocType           `json:"doc_type,omitempty"`
	IngestedAt time.Time         `json:"ingestion_time"`
	FileSize   int64             `json:"file_size,omitempty"`
	PageCount  int               `json:"page_count,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

type Document struct {
	Id       string      `json:"id"`
	Text     string      `json:"text"`
	Metadata DocMetadata `json:"metadata"`
}

// Chunk is a contiguous slice of a document. Start and End are rune offsets into
// the document text.
type Chunk struct {
	Id         string      `json:"id"`
	DocumentId string      `json:"document_id"`
	Index      int         `json:"index"`
	Start      int         `json:"start"`
	End        int         `json:"end"`
	Text       string      `json:"text"`
	Metadata   DocMetadata `json:"metadata"`
	Embedding  []float32   `json:"embedding,omitempty"`
}

type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

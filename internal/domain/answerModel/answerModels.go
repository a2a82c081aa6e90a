package answerModel

import (
	"fmt"
	"time"

	"github.com/akolanti/KnowledgeAPI/internal/domain/commonModels"
)

type StructuredAnswer struct {
	Answer    string              `json:"answer"`
	Sources   []SourceAttribution `json:"sources"`
	QueryTime string              `json:"query_time"`
	Elapsed   time.Duration       `json:"elapsed_ns"`
}

type SourceAttribution struct {
	Text       string                   `json:"text"`
	Score      *float64                 `json:"score"`
	DocumentId string                   `json:"document_id"`
	FileName   string                   `json:"file_name"`
	Metadata   commonModels.DocMetadata `json:"metadata"`
}

// FormatQueryTime renders an elapsed duration as seconds with two decimals, e.g. "0.12s".
func FormatQueryTime(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

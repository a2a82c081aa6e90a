package adapter

import (
	"strconv"
	"time"

	"github.com/akolanti/KnowledgeAPI/internal/api"
	"github.com/akolanti/KnowledgeAPI/internal/data/documentStore"
	"github.com/akolanti/KnowledgeAPI/internal/domain/answerModel"
	"github.com/akolanti/KnowledgeAPI/internal/domain/commonModels"
	"github.com/akolanti/KnowledgeAPI/internal/domain/ragErrors"
)

const UploadNote = "The document will be indexed on the next server restart"

func ToQueryResponse(ans answerModel.StructuredAnswer) api.QueryResponse {
	sources := make([]api.SourceResponse, len(ans.Sources))
	for i, s := range ans.Sources {
		sources[i] = api.SourceResponse{
			Text:       s.Text,
			Score:      s.Score,
			DocumentId: s.DocumentId,
			FileName:   s.FileName,
			Metadata:   ToMetadataMap(s.Metadata),
		}
	}
	return api.QueryResponse{
		Answer:    ans.Answer,
		Sources:   sources,
		QueryTime: ans.QueryTime,
	}
}

// ToMetadataMap flattens document metadata into the flat string map clients see.
func ToMetadataMap(m commonModels.DocMetadata) map[string]string {
	out := make(map[string]string, len(m.Extra)+6)
	for k, v := range m.Extra {
		out[k] = v
	}
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("file_name", m.FileName)
	set("file_path", m.FilePath)
	set("doc_type", string(m.DocType))
	if !m.IngestedAt.IsZero() {
		out["ingestion_time"] = m.IngestedAt.Format(time.RFC3339)
	}
	if m.FileSize > 0 {
		out["file_size"] = strconv.FormatInt(m.FileSize, 10)
	}
	if m.PageCount > 0 {
		out["page_count"] = strconv.Itoa(m.PageCount)
	}
	return out
}

func ToDocumentList(docs []documentStore.DocumentInfo) api.DocumentListResponse {
	out := make([]api.DocumentResponse, len(docs))
	for i, d := range docs {
		out[i] = api.DocumentResponse{
			Filename:     d.Filename,
			Size:         d.Size,
			LastModified: d.LastModified.Format(time.RFC3339),
			Type:         d.Type,
		}
	}
	return api.DocumentListResponse{Documents: out}
}

func ToUploadResponse(filename string) api.UploadResponse {
	return api.UploadResponse{
		Message:  "Document uploaded successfully",
		Filename: filename,
		Note:     UploadNote,
	}
}

// ToErrorResponse maps a pipeline error to its status code and body.
func ToErrorResponse(err error) (int, api.ErrorResponse) {
	return ragErrors.HTTPStatus(err), api.ErrorResponse{Error: ragErrors.Message(err)}
}

func BadRequest(message string) api.ErrorResponse {
	return api.ErrorResponse{Error: message}
}

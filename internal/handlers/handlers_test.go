package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/KnowledgeAPI/internal/api"
	"github.com/akolanti/KnowledgeAPI/internal/data/documentStore"
	"github.com/akolanti/KnowledgeAPI/internal/domain/answerModel"
	"github.com/akolanti/KnowledgeAPI/internal/domain/commonModels"
	"github.com/akolanti/KnowledgeAPI/internal/domain/ragErrors"
	"github.com/akolanti/KnowledgeAPI/internal/rag"
)

type mockService struct {
	OnAsk         func(ctx context.Context, question string) (answerModel.StructuredAnswer, error)
	OnIndexStatus func(ctx context.Context) rag.IndexStatus
}

func (m *mockService) Ask(ctx context.Context, q string) (answerModel.StructuredAnswer, error) {
	return m.OnAsk(ctx, q)
}

func (m *mockService) IndexStatus(ctx context.Context) rag.IndexStatus {
	if m.OnIndexStatus != nil {
		return m.OnIndexStatus(ctx)
	}
	return rag.IndexStatusNotCreated
}

func (m *mockService) Rebuild(context.Context) error     { return nil }
func (m *mockService) EnsureIndex(context.Context) error { return nil }

func newTestHandler(t *testing.T, svc *mockService) (*Handler, string) {
	dir := t.TempDir()
	return NewHandler(svc, documentStore.New(dir, 1024), 1024), dir
}

func TestQueryHandler(t *testing.T) {
	score := 0.83
	tests := []struct {
		name       string
		body       string
		onAsk      func(ctx context.Context, q string) (answerModel.StructuredAnswer, error)
		wantStatus int
		wantError  string
	}{
		{
			name: "success",
			body: `{"query":"What is the capital of France?"}`,
			onAsk: func(_ context.Context, q string) (answerModel.StructuredAnswer, error) {
				return answerModel.StructuredAnswer{
					Answer:    "Paris",
					QueryTime: "0.10s",
					Sources: []answerModel.SourceAttribution{{
						Text: "The capital of France is Paris.", Score: &score, DocumentId: "france.txt", FileName: "france.txt",
						Metadata: commonModels.DocMetadata{FileName: "france.txt", DocType: commonModels.TXT},
					}},
				}, nil
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "malformed body",
			body:       `{"query":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Query is required",
		},
		{
			name: "blank query",
			body: `{"query":"  "}`,
			onAsk: func(context.Context, string) (answerModel.StructuredAnswer, error) {
				return answerModel.StructuredAnswer{}, ragErrors.Validation("query is required")
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "empty corpus",
			body: `{"query":"hi"}`,
			onAsk: func(context.Context, string) (answerModel.StructuredAnswer, error) {
				return answerModel.StructuredAnswer{}, ragErrors.Wrap(ragErrors.ErrEmptyCorpus, nil, "no chunks")
			},
			wantStatus: http.StatusNotFound,
			wantError:  ragErrors.EmptyCorpusMessage,
		},
		{
			name: "generation failure",
			body: `{"query":"hi"}`,
			onAsk: func(context.Context, string) (answerModel.StructuredAnswer, error) {
				return answerModel.StructuredAnswer{}, ragErrors.Wrap(ragErrors.ErrGeneration, nil, "timeout")
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			name: "corrupt index",
			body: `{"query":"hi"}`,
			onAsk: func(context.Context, string) (answerModel.StructuredAnswer, error) {
				return answerModel.StructuredAnswer{}, ragErrors.Corruption(nil, "bad checksum")
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t, &mockService{OnAsk: tt.onAsk})
			req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.QueryHandler(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tt.wantStatus == http.StatusOK {
				var resp api.QueryResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, "Paris", resp.Answer)
				assert.Equal(t, "0.10s", resp.QueryTime)
				require.Len(t, resp.Sources, 1)
				assert.Equal(t, "france.txt", resp.Sources[0].FileName)
				assert.Equal(t, "txt", resp.Sources[0].Metadata["doc_type"])
				return
			}
			var resp api.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Error)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, resp.Error)
			}
		})
	}
}

func multipartRequest(t *testing.T, field, filename, content string) *http.Request {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadHandler(t *testing.T) {
	h, dir := newTestHandler(t, &mockService{})

	rec := httptest.NewRecorder()
	h.UploadHandler(rec, multipartRequest(t, "file", "my notes.md", "# notes"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.UploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "my_notes.md", resp.Filename)
	assert.Contains(t, resp.Note, "next server restart")
	_, err := os.Stat(filepath.Join(dir, "my_notes.md"))
	assert.NoError(t, err)

	rec = httptest.NewRecorder()
	h.UploadHandler(rec, multipartRequest(t, "file", "virus.exe", "x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.UploadHandler(rec, multipartRequest(t, "document", "a.txt", "x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.UploadHandler(rec, multipartRequest(t, "file", "big.txt", strings.Repeat("a", 2048)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentsAndHealth(t *testing.T) {
	svc := &mockService{OnIndexStatus: func(context.Context) rag.IndexStatus { return rag.IndexStatusReady }}
	h, dir := newTestHandler(t, svc)

	rec := httptest.NewRecorder()
	h.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	var health api.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "ready", health.IndexStatus)
	assert.False(t, health.Documents)
	assert.NotEmpty(t, health.Timestamp)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "guide.pdf"), []byte("%PDF"), 0o600))

	rec = httptest.NewRecorder()
	h.DocumentsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var docs api.DocumentListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&docs))
	require.Len(t, docs.Documents, 1)
	assert.Equal(t, "guide.pdf", docs.Documents[0].Filename)
	assert.Equal(t, "pdf", docs.Documents[0].Type)
	assert.Equal(t, int64(4), docs.Documents[0].Size)
}

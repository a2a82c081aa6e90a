package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/akolanti/KnowledgeAPI/internal/adapter"
	"github.com/akolanti/KnowledgeAPI/internal/api"
	"github.com/akolanti/KnowledgeAPI/internal/data/documentStore"
	"github.com/akolanti/KnowledgeAPI/internal/rag"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
)

var logRH = logger_i.NewLogger("RequestHandler")

type Handler struct {
	service        rag.Service
	library        *documentStore.Library
	maxUploadBytes int64
}

func NewHandler(service rag.Service, library *documentStore.Library, maxUploadBytes int64) *Handler {
	return &Handler{service: service, library: library, maxUploadBytes: maxUploadBytes}
}

// QueryHandler godoc
// @Summary      Ask a question
// @Description  Answers a question from the indexed documents and returns the answer with its sources.
// @Tags         Query
// @Accept       json
// @Produce      json
// @Param        request  body      api.QueryRequest    true  "The question"
// @Success      200      {object}  api.QueryResponse   "Answer with source attributions"
// @Failure      400      {object}  api.ErrorResponse   "Missing or malformed query"
// @Failure      404      {object}  api.ErrorResponse   "No documents to answer from"
// @Failure      502      {object}  api.ErrorResponse   "Embedding or language model failure"
// @Failure      500      {object}  api.ErrorResponse   "Index unusable or internal error"
// @Router       /query [post]
func (h *Handler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request", "remote", r.RemoteAddr)
		return
	}
	log := logRH.WithTrace(r.Context())

	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			log.Error("Couldn't close the query handler reader", "error", err)
		}
	}(r.Body)

	var requestData api.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		log.Warn("Bad query request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "Query is required")
		return
	}

	answer, err := h.service.Ask(r.Context(), requestData.Query)
	if err != nil {
		status, body := adapter.ToErrorResponse(err)
		writeJsonResponse(w, status, body)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToQueryResponse(answer))
}

// UploadHandler godoc
// @Summary      Upload a document
// @Description  Stores a document in the data directory. It is indexed on the next restart or rebuild.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "txt, pdf, md, html, csv, json or docx file"
// @Success      200   {object}  api.UploadResponse
// @Failure      400   {object}  api.ErrorResponse  "Missing file, disallowed type or too large"
// @Failure      500   {object}  api.ErrorResponse  "Storage error"
// @Router       /upload [post]
func (h *Handler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request", "remote", r.RemoteAddr)
		return
	}
	log := logRH.WithTrace(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteErrorResponse(w, http.StatusBadRequest, "File too large")
			return
		}
		WriteErrorResponse(w, http.StatusBadRequest, "No file part")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "No selected file")
		return
	}

	stored, err := h.library.Save(header.Filename, file)
	if err != nil {
		log.Warn("Upload rejected", "filename", header.Filename, "error", err)
		status, body := adapter.ToErrorResponse(err)
		writeJsonResponse(w, status, body)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToUploadResponse(stored))
}

// DocumentsHandler godoc
// @Summary      List documents
// @Description  Lists the documents in the data directory.
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  api.DocumentListResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /documents [get]
func (h *Handler) DocumentsHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := h.library.List()
	if err != nil {
		logRH.WithTrace(r.Context()).Error("Error listing documents", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Error listing documents: "+err.Error())
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentList(docs))
}

// HealthHandler godoc
// @Summary      Health check
// @Description  Reports whether an index exists and whether there are documents to index.
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.HealthResponse
// @Router       /health [get]
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, api.HealthResponse{
		Status:      "healthy",
		IndexStatus: string(h.service.IndexStatus(r.Context())),
		Documents:   h.library.HasDocuments(),
		Timestamp:   time.Now().Format(time.RFC3339),
	})
}

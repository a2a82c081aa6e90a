package api

// requests---------------------

type QueryRequest struct {
	Query string `json:"query" validate:"required" example:"What is the capital of France?"`
}

// responses--------------------

type QueryResponse struct {
	Answer    string           `json:"answer" example:"Paris is the capital of France."`
	Sources   []SourceResponse `json:"sources"`
	QueryTime string           `json:"query_time" example:"0.84s"`
}

type SourceResponse struct {
	Text       string            `json:"text"`
	Score      *float64          `json:"score"`
	DocumentId string            `json:"document_id" example:"guides/france.txt"`
	FileName   string            `json:"file_name" example:"france.txt"`
	Metadata   map[string]string `json:"metadata"`
}

type ErrorResponse struct {
	Error string `json:"error" example:"Query is required"`
}

type UploadResponse struct {
	Message  string `json:"message" example:"Document uploaded successfully"`
	Filename string `json:"filename" example:"report.pdf"`
	Note     string `json:"note" example:"The document will be indexed on the next server restart"`
}

type DocumentResponse struct {
	Filename     string `json:"filename"`
	Size         int64  `json:"size"`
	LastModified string `json:"last_modified" example:"2024-05-01T12:00:00Z"`
	Type         string `json:"type" example:"pdf"`
}

type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

type HealthResponse struct {
	Status      string `json:"status" example:"healthy"`
	IndexStatus string `json:"indexStatus" example:"ready"`
	Documents   bool   `json:"documents"`
	Timestamp   string `json:"timestamp"`
}

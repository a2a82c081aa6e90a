package mcpServer

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/akolanti/KnowledgeAPI/internal/adapter"
	"github.com/akolanti/KnowledgeAPI/internal/api"
)

type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed documents"`
}

type AskOutput struct {
	Answer    string               `json:"answer"`
	Sources   []api.SourceResponse `json:"sources"`
	QueryTime string               `json:"query_time"`
}

type ListDocumentsInput struct{}

type ListDocumentsOutput struct {
	Documents []api.DocumentResponse `json:"documents"`
	Count     int                    `json:"count"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_knowledge_base",
		Description: "Answer a question using the documents in the knowledge base, with source attributions",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents available to the knowledge base",
	}, s.handleListDocuments)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.service.Ask(ctx, input.Question)
	if err != nil {
		logger.WithTrace(ctx).Warn("ask_knowledge_base failed", "error", err)
		_, body := adapter.ToErrorResponse(err)
		return nil, AskOutput{}, errors.New(body.Error)
	}
	resp := adapter.ToQueryResponse(answer)
	return nil, AskOutput{Answer: resp.Answer, Sources: resp.Sources, QueryTime: resp.QueryTime}, nil
}

func (s *Server) handleListDocuments(ctx context.Context, _ *mcp.CallToolRequest, _ ListDocumentsInput) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.library.List()
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}
	list := adapter.ToDocumentList(docs)
	return nil, ListDocumentsOutput{Documents: list.Documents, Count: len(list.Documents)}, nil
}

package mcpServer

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/akolanti/KnowledgeAPI/internal/data/documentStore"
	"github.com/akolanti/KnowledgeAPI/internal/rag"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
)

const Version = "1.0.0"

var logger = logger_i.NewLogger("mcp")

// Server exposes the question answering service as MCP tools.
type Server struct {
	service rag.Service
	library *documentStore.Library
	server  *mcp.Server
}

func NewServer(service rag.Service, library *documentStore.Library) *Server {
	s := &Server{
		service: service,
		library: library,
		server:  mcp.NewServer(&mcp.Implementation{Name: "knowledge-api", Version: Version}, nil),
	}
	s.registerTools()
	return s
}

// HTTPHandler serves the tools over the streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

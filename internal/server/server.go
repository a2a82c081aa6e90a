package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/akolanti/KnowledgeAPI/internal/adapter/utils"
	"github.com/akolanti/KnowledgeAPI/internal/config"
	"github.com/akolanti/KnowledgeAPI/internal/handlers"
	"github.com/akolanti/KnowledgeAPI/internal/middleware"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

var _logger = logger_i.NewLogger("Server")

type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
}

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	CloseServices    context.CancelFunc
}

// NewRouter mounts the JSON api under the configured prefix and the MCP endpoint,
// when given, at /mcp.
func NewRouter(settings config.ServerSettings, h *handlers.Handler, mcpHandler http.Handler) *chi.Mux {
	r := utils.NewRouter(settings.CORSOrigins)
	chain := middleware.New(settings)

	r.Route(settings.APIPrefix, func(api chi.Router) {
		api.Post("/query", chain.Wrap(h.QueryHandler))
		api.Post("/upload", chain.Wrap(h.UploadHandler))
		api.Get("/documents", chain.Wrap(h.DocumentsHandler))
		api.Get("/health", chain.Wrap(h.HealthHandler))
	})
	if mcpHandler != nil {
		r.Handle("/mcp", chain.Handler(mcpHandler))
	}
	return r
}

func NewServer(settings config.ServerSettings, h *handlers.Handler, mcpHandler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         settings.ListenAddr,
			Handler:      NewRouter(settings, h, mcpHandler),
			ReadTimeout:  settings.ReadTimeout,
			WriteTimeout: settings.WriteTimeout,
			IdleTimeout:  settings.IdleTimeout,
		},
		shutdownTimeout: settings.ShutdownTimeout,
	}
}

func (s *Server) Start() {
	_logger.Info("Server is listening at", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err.Error(), "addr", s.httpServer.Addr)
	}
}

func (s *Server) ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		s.httpServer.SetKeepAlivesEnabled(false)

		if err := s.httpServer.Shutdown(ctx); err != nil {
			_logger.Error("Could not shutdown gracefully", "error", err)
		}

		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully shut down")
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}

// Package server provides the HTTP API for umekomi.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/umekomi/internal/api"
	"github.com/hyperjump/umekomi/internal/config"
	"go.uber.org/zap"
)

// EmbeddingService is the operation set served over HTTP. *service.Service implements it.
type EmbeddingService interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Health() (api.HealthStatus, error)
	Info() (*api.InfoResponse, error)
}

// Server is the HTTP server for the umekomi API.
type Server struct {
	svc    EmbeddingService
	config *config.ServerConfig
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(svc EmbeddingService, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:    svc,
		config: cfg,
		logger: logger,
	}
	s.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(recoverer(s.logger))
	r.Use(middleware.Compress(5))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Post("/embed", s.handleEmbed)
	r.Get("/health", s.handleHealth)
	r.Get("/info", s.handleInfo)
	return r
}

// Start starts the HTTP server and blocks until it stops.
// Returns http.ErrServerClosed after Stop, including when Stop ran first.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Serve is Start on an existing listener.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("Starting server", zap.String("addr", l.Addr().String()))
	return s.server.Serve(l)
}

// Stop gracefully shuts down the server, waiting for in-flight requests
// until ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

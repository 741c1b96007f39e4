package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
	"github.com/custodia-labs/ragcore/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	authService     driving.AuthService
	ingestService   driving.IngestService
	queryService    driving.QueryService
	documentService driving.DocumentService

	// Infrastructure. A nil taskQueue means uploads are ingested inline.
	taskQueue  driven.TaskQueue
	spoolDir   string
	maxUpload  int64
	components map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	MaxUploadBytes int64
	SpoolDir       string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		MaxUploadBytes: 50 << 20, // 50 MiB
		SpoolDir:       os.TempDir(),
	}
}

// NewServer creates a new HTTP server.
// taskQueue may be nil; components maps backend names to health checks
// for the /health endpoint.
func NewServer(
	cfg Config,
	authService driving.AuthService,
	ingestService driving.IngestService,
	queryService driving.QueryService,
	documentService driving.DocumentService,
	taskQueue driven.TaskQueue,
	components map[string]Pinger,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultConfig().MaxUploadBytes
	}
	if cfg.SpoolDir == "" {
		cfg.SpoolDir = os.TempDir()
	}

	s := &Server{
		router:          http.NewServeMux(),
		version:         cfg.Version,
		logger:          logger,
		authService:     authService,
		ingestService:   ingestService,
		queryService:    queryService,
		documentService: documentService,
		taskQueue:       taskQueue,
		spoolDir:        cfg.SpoolDir,
		maxUpload:       cfg.MaxUploadBytes,
		components:      components,
	}

	logging := NewLoggingMiddleware(logger)
	recovery := NewRecoveryMiddleware(logger)
	cors := NewCORSMiddleware([]string{"*"})

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      recovery.Handler(logging.Handler(cors.Handler(s.router))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // queries can stuff a slow completion provider
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Auth endpoints (public)
	s.router.HandleFunc("POST /auth/register", s.handleRegister)
	s.router.HandleFunc("POST /auth/login", s.handleLogin)

	// Auth endpoints (authenticated)
	s.router.Handle("GET /auth/me",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetMe)))

	// Corpus endpoints (authenticated)
	s.router.Handle("POST /ingest",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleIngest)))
	s.router.Handle("POST /query",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleQuery)))
	s.router.Handle("GET /documents",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListDocuments)))
	s.router.Handle("GET /stats",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleStats)))
	s.router.Handle("DELETE /documents/{name}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleDeleteDocument)))
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the routed handler for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

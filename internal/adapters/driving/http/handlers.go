package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// QueryRequest is the body of a query call
// @Description Question over the caller's indexed corpus
type QueryRequest struct {
	Question string `json:"question" example:"how does leader election work?"`
	TopK     int    `json:"top_k,omitempty" example:"5"`
}

// IngestResponse reports the outcome of an upload
// @Description Upload outcome
type IngestResponse struct {
	Status        string `json:"status" example:"indexed"`
	DocumentID    string `json:"document_id"`
	ChunksIndexed int    `json:"chunks_indexed,omitempty"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns per-backend component status
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	checks := make(map[string]string, len(s.components))
	for name, pinger := range s.components {
		if err := pinger.Ping(r.Context()); err != nil {
			checks[name] = "unavailable"
			status = "degraded"
		} else {
			checks[name] = "healthy"
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     status,
		"components": checks,
	})
}

// handleReady godoc
// @Summary      Readiness check
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Auth endpoints

// handleRegister godoc
// @Summary      Create an account
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      driving.RegisterRequest  true  "Account details"
// @Success      201      {object}  domain.UserSummary
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      409      {object}  ErrorResponse  "Username or email taken"
// @Router       /auth/register [post]
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req driving.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summary, err := s.authService.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid username, email, or password")
		case errors.Is(err, domain.ErrAlreadyExists):
			writeError(w, http.StatusConflict, "username or email already registered")
		default:
			writeError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, summary)
}

// handleLogin godoc
// @Summary      User login
// @Description  Authenticate with username and password to receive a JWT token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      driving.LoginRequest  true  "Login credentials"
// @Success      200      {object}  domain.LoginResult
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid credentials"
// @Router       /auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req driving.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.authService.Login(r.Context(), req)
	if err != nil {
		// One message for every failure mode so probing reveals nothing
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetMe godoc
// @Summary      Get current user
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.UserSummary
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "User not found"
// @Router       /auth/me [get]
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := s.authService.GetUser(r.Context(), authCtx.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// Corpus endpoints

// handleIngest godoc
// @Summary      Upload a document
// @Description  Parses, chunks, embeds and indexes the uploaded file. With a
// @Description  task queue configured the upload is spooled and processed
// @Description  asynchronously (202); otherwise it is ingested inline (200).
// @Tags         Corpus
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "Document to index"
// @Success      200   {object}  IngestResponse  "Indexed inline"
// @Success      202   {object}  IngestResponse  "Accepted for processing"
// @Failure      413   {object}  ErrorResponse   "File too large"
// @Failure      422   {object}  ErrorResponse   "Unparseable or empty file"
// @Failure      503   {object}  ErrorResponse   "Backend unavailable"
// @Router       /ingest [post]
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	if header.Size > s.maxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	source := filepath.Base(header.Filename)

	if s.taskQueue != nil {
		s.ingestAsync(w, r, authCtx, source, mimeType, file)
		return
	}

	result, err := s.ingestService.Ingest(r.Context(), authCtx.NewScope(), source, mimeType, file)
	if err != nil {
		writeIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{
		Status:        "indexed",
		DocumentID:    result.DocumentID,
		ChunksIndexed: result.ChunksIndexed,
	})
}

// ingestAsync spools the upload to disk and enqueues an ingest task
func (s *Server) ingestAsync(w http.ResponseWriter, r *http.Request, authCtx *domain.AuthContext, source, mimeType string, file io.Reader) {
	documentID := domain.GenerateID()
	spoolPath := filepath.Join(s.spoolDir, documentID)

	spool, err := os.Create(spoolPath)
	if err != nil {
		s.logger.Error("failed to create spool file", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to accept upload")
		return
	}
	if _, err := io.Copy(spool, file); err != nil {
		spool.Close()
		os.Remove(spoolPath)
		writeError(w, http.StatusInternalServerError, "failed to accept upload")
		return
	}
	if err := spool.Close(); err != nil {
		os.Remove(spoolPath)
		writeError(w, http.StatusInternalServerError, "failed to accept upload")
		return
	}

	task := domain.NewIngestTask(authCtx.UserID, documentID, source, mimeType, spoolPath)
	if err := s.taskQueue.Enqueue(r.Context(), task); err != nil {
		os.Remove(spoolPath)
		s.logger.Error("failed to enqueue ingest task", "error", err)
		writeError(w, http.StatusServiceUnavailable, "ingest queue unavailable")
		return
	}

	writeJSON(w, http.StatusAccepted, IngestResponse{
		Status:     "accepted",
		DocumentID: documentID,
	})
}

// handleQuery godoc
// @Summary      Ask a question
// @Description  Embeds the question, retrieves from both indexes, fuses the
// @Description  rankings and generates a cited answer
// @Tags         Corpus
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      QueryRequest  true  "Question"
// @Success      200      {object}  domain.QueryResult
// @Failure      400      {object}  ErrorResponse  "Empty question"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      503      {object}  ErrorResponse  "Retrieval backends unavailable"
// @Router       /query [post]
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.queryService.Query(r.Context(), authCtx.NewScope(), req.Question, req.TopK)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyInput), errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "question is required")
		case errors.Is(err, domain.ErrEmbeddingUnavailable):
			writeError(w, http.StatusServiceUnavailable, "embedding provider unavailable")
		case errors.Is(err, domain.ErrStoreUnavailable):
			writeError(w, http.StatusServiceUnavailable, "retrieval backends unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "query failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListDocuments godoc
// @Summary      List documents
// @Tags         Corpus
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  domain.Document
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /documents [get]
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	docs, err := s.documentService.List(r.Context(), authCtx.NewScope())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []*domain.Document{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

// handleStats godoc
// @Summary      Corpus statistics
// @Tags         Corpus
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.CorpusStats
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /stats [get]
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	stats, err := s.documentService.Stats(r.Context(), authCtx.NewScope())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to aggregate stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleDeleteDocument godoc
// @Summary      Delete a document by source filename
// @Tags         Corpus
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string  true  "Source filename"
// @Success      200   {object}  StatusResponse
// @Failure      401   {object}  ErrorResponse  "Unauthorized"
// @Failure      404   {object}  ErrorResponse  "Not found"
// @Router       /documents/{name} [delete]
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	name := r.PathValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "document name is required")
		return
	}

	if err := s.documentService.DeleteBySource(r.Context(), authCtx.NewScope(), name); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "document not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete document")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// writeIngestError maps ingest failures to HTTP statuses
func writeIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
	case errors.Is(err, domain.ErrEmptyInput):
		writeError(w, http.StatusUnprocessableEntity, "file contains no text")
	case errors.Is(err, domain.ErrParseFailure):
		writeError(w, http.StatusUnprocessableEntity, "file could not be parsed")
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		writeError(w, http.StatusServiceUnavailable, "embedding provider unavailable")
	case errors.Is(err, domain.ErrEmbeddingRejected):
		writeError(w, http.StatusUnprocessableEntity, "embedding provider rejected the document")
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "index backend unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "ingest failed")
	}
}

// Response helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Package api is the HTTP interface of the extraction service.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dgallion1/syllabus/internal/config"
	"github.com/dgallion1/syllabus/internal/oracle"
	"github.com/dgallion1/syllabus/internal/pipeline"
	"github.com/dgallion1/syllabus/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for syllabus extraction.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	files        *store.FileStore
	graph        *store.PathstoreSink // nil when pathstore publishing is off
	stats        *oracle.Stats
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. graph and stats may be nil.
func NewServer(orch *pipeline.Orchestrator, files *store.FileStore, graph *store.PathstoreSink, stats *oracle.Stats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		files:        files,
		graph:        graph,
		stats:        stats,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/extract", s.handleExtract)
		r.Post("/api/extract/batch", s.handleBatchExtract)
		r.Get("/api/extract/{jobID}/status", s.handleExtractStatus)
		r.Get("/api/extract/{jobID}/record", s.handleExtractRecord)
		r.Get("/api/stats/llm", s.handleLLMStats)

		r.Get("/api/courses", s.handleListCourses)
		r.Get("/api/courses/{file}", s.handleGetCourse)
		r.Delete("/api/courses/{file}", s.handleDeleteCourse)

		r.Get("/api/graph/courses", s.handleListGraphCourses)
		r.Get("/api/graph/courses/{code}", s.handleGetGraphCourse)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dgallion1/syllabus/internal/record"
	"github.com/dgallion1/syllabus/internal/store"
	"github.com/go-chi/chi/v5"
)

// handleListCourses lists the stored course records.
func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	entries, err := s.files.List()
	if err != nil {
		jsonError(w, "failed to list courses: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"courses": entries})
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	rec, err := s.files.Load(courseParam(r))
	if err != nil {
		courseError(w, err)
		return
	}
	data, err := store.Marshal(rec)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handleDeleteCourse deletes a stored record and, when publishing is on,
// its pathstore node.
func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	name := courseParam(r)
	// An unreadable record is still deleted; only its graph node is kept.
	rec, _ := s.files.Load(name)
	if err := s.files.Delete(name); err != nil {
		courseError(w, err)
		return
	}

	graphDeleted := false
	if s.graph != nil && rec != nil && rec.Code != "" && rec.Code != record.NotFound {
		if err := s.graph.Delete(r.Context(), rec.Code); err != nil {
			s.log.Warn("pathstore delete failed", "code", rec.Code, "error", err)
		} else {
			graphDeleted = true
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"deleted":           name,
		"pathstore_deleted": graphDeleted,
	})
}

// handleListGraphCourses lists the course nodes published to pathstore.
func (s *Server) handleListGraphCourses(w http.ResponseWriter, r *http.Request) {
	if s.graph == nil {
		jsonError(w, "pathstore publishing is disabled", http.StatusServiceUnavailable)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.graph.Courses(r.Context(), limit)
	if err != nil {
		jsonError(w, "failed to list graph courses: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"courses": entries})
}

func (s *Server) handleGetGraphCourse(w http.ResponseWriter, r *http.Request) {
	if s.graph == nil {
		jsonError(w, "pathstore publishing is disabled", http.StatusServiceUnavailable)
		return
	}
	code := chi.URLParam(r, "code")
	rec, err := s.graph.Course(r.Context(), code)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "course not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func courseError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "course not found", http.StatusNotFound)
		return
	}
	jsonError(w, err.Error(), http.StatusBadRequest)
}

func courseParam(r *http.Request) string {
	name := chi.URLParam(r, "file")
	if v, err := url.PathUnescape(name); err == nil {
		return v
	}
	return name
}

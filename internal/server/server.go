// Package server exposes the engine over HTTP: validation reports,
// metric snapshots scoped by a drill-down filter, and hierarchy
// metadata. The filter path travels as a URL query parameter so
// dashboard positions are linkable.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gridsight-labs/gridsight/internal/engine"
	"github.com/gridsight-labs/gridsight/internal/hierarchy"
)

// Server wraps the engine with an HTTP API.
type Server struct {
	engine *engine.Engine
	logger *slog.Logger
	router chi.Router
}

// New builds the server and its routes.
func New(eng *engine.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{engine: eng, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/validate", s.handleValidate)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/levels", s.handleLevels)
		r.Get("/drill", s.handleDrill)
	})

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe runs the server on addr until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.Validate()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleMetrics evaluates every metric at the drill-down position given
// by the filter query parameter. A malformed filter degrades to the
// empty path rather than failing the request.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	// Query() has already unescaped the value; only the JSON remains.
	path := hierarchy.DecodePath(r.URL.Query().Get("filter"))

	snap, err := s.engine.Snapshot(path)
	if err != nil {
		var invalid *engine.InvalidConfigError
		if errors.As(err, &invalid) {
			// 422: the request is fine, the configuration is not.
			s.writeJSON(w, http.StatusUnprocessableEntity, invalid.Result)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"levels": s.engine.Levels(),
	})
}

// handleDrill returns the next selectable level and its values under the
// given filter position.
func (s *Server) handleDrill(w http.ResponseWriter, r *http.Request) {
	path := hierarchy.DecodePath(r.URL.Query().Get("filter"))

	level, values, ok := s.engine.DrillOptions(path)
	if !ok {
		s.writeJSON(w, http.StatusOK, map[string]any{"exhausted": true})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"level":  level,
		"values": values,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Error("request failed", "error", err)
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

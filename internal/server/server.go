// Package server exposes the refinement pipeline and its stores over a
// small JSON HTTP API consumed by the dashboard.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"goalforge/internal/goalstore"
	"goalforge/internal/refine"
	"goalforge/internal/telemetry"
)

// Refiner is the slice of the pipeline the server needs.
type Refiner interface {
	Refine(ctx context.Context, input string) (*refine.Result, error)
}

// Server wires the HTTP API.
type Server struct {
	refiner   Refiner
	goals     *goalstore.Store
	telemetry *telemetry.Store
	logger    *zap.Logger
	mux       *http.ServeMux
}

// New creates the server and registers its routes.
func New(refiner Refiner, goals *goalstore.Store, tel *telemetry.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		refiner:   refiner,
		goals:     goals,
		telemetry: tel,
		logger:    logger,
		mux:       http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /api/refine", s.handleRefine)
	s.mux.HandleFunc("POST /api/goals", s.handleSaveGoal)
	s.mux.HandleFunc("GET /api/goals", s.handleListGoals)
	s.mux.HandleFunc("GET /api/goals/{id}", s.handleGetGoal)
	s.mux.HandleFunc("DELETE /api/goals/{id}", s.handleDeleteGoal)
	s.mux.HandleFunc("GET /api/telemetry", s.handleTelemetry)
	s.mux.HandleFunc("GET /api/telemetry/summary", s.handleTelemetrySummary)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// =============================================================================
// HANDLERS
// =============================================================================

type refineRequest struct {
	Input string `json:"input"`
}

func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "request body must be JSON with an \"input\" field")
		return
	}

	result, err := s.refiner.Refine(r.Context(), req.Input)
	if err != nil {
		s.logger.Error("refinement failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, fmt.Sprintf("refinement failed: %v", err))
		return
	}

	// Guardrail rejections and accepted goals share the 200 path; the
	// body shape tells them apart.
	if result.Rejected() {
		s.writeJSON(w, http.StatusOK, map[string]string{"error": result.Error})
		return
	}
	s.writeJSON(w, http.StatusOK, result.Goal)
}

type saveGoalRequest struct {
	Input string          `json:"input"`
	Goal  json.RawMessage `json:"goal"`
}

func (s *Server) handleSaveGoal(w http.ResponseWriter, r *http.Request) {
	var req saveGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Goal) == 0 {
		s.writeError(w, http.StatusBadRequest, "request body must include input and goal")
		return
	}

	saved, err := s.goals.Save(r.Context(), req.Input, req.Goal)
	if err != nil {
		s.logger.Error("failed to save goal", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to save goal")
		return
	}
	s.writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.goals.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list goals", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list goals")
		return
	}
	if goals == nil {
		goals = []goalstore.SavedGoal{}
	}
	s.writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	saved, err := s.goals.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, goalstore.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "goal not found")
			return
		}
		s.logger.Error("failed to load goal", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load goal")
		return
	}
	s.writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.goals.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, goalstore.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "goal not found")
			return
		}
		s.logger.Error("failed to delete goal", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to delete goal")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	f := telemetry.Filter{Limit: 100}
	q := r.URL.Query()
	if v := q.Get("model"); v != "" {
		f.Model = v
	}
	if q.Get("failures") == "true" {
		f.FailuresOnly = true
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		f.Since = since
	}

	records, err := s.telemetry.Query(r.Context(), f)
	if err != nil {
		s.logger.Error("failed to query telemetry", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to query telemetry")
		return
	}
	if records == nil {
		records = []telemetry.Record{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleTelemetrySummary(w http.ResponseWriter, r *http.Request) {
	stats, err := s.telemetry.Summary(r.Context())
	if err != nil {
		s.logger.Error("failed to summarize telemetry", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to summarize telemetry")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httpapi implements the cvpc HTTP API server and its client.
//
// Routes:
//
//	GET  /healthz  liveness probe
//	GET  /version  build version
//	POST /events   submit an event (journaled, 202)
//	GET  /events   recent journaled events (?type=&limit=)
//	GET  /stats    journaled event count per type
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"cvpc/internal/event"
	"cvpc/internal/journal"
	"cvpc/pkg/types"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg     types.HTTPConfig
	logger  *zap.Logger
	store   *journal.Store
	version string
	server  *http.Server
}

// New constructs a server with routes and middleware wired.
func New(cfg types.HTTPConfig, store *journal.Store, version string, logger *zap.Logger) *Server {
	if cfg.Timeout <= 0 {
		cfg.Timeout = types.DefaultAPIHTTPTimeout
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		version: version,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/version", s.handleVersion)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/stats", s.handleStats)

	s.server = &http.Server{
		Addr:         net.JoinHostPort(cfg.Bind, strconv.Itoa(cfg.Port)),
		Handler:      s.loggingMiddleware(mux),
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}

	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Run starts the HTTP server and blocks until it exits or errors.
func (s *Server) Run() error {
	s.logger.Info("api server listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down api server")
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("api server stopped")
	return nil
}

// Handler exposes the wired handler for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// SubmitRequest is the POST /events payload.
type SubmitRequest struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// SubmitResponse is the POST /events response body.
type SubmitResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSubmitEvent(w, r)
	case http.MethodGet:
		s.handleListEvents(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSubmitEvent(w http.ResponseWriter, r *http.Request) {
	var payload SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if payload.Type == "" {
		respondError(w, http.StatusBadRequest, "event type is required")
		return
	}

	id, err := s.store.Append(r.Context(), event.New(payload.Type, payload.Data), journal.SourceAPI)
	if err != nil {
		s.logger.Error("journal append failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not journal event")
		return
	}

	s.logger.Info("event submitted", zap.String("type", payload.Type), zap.String("id", id))
	respondJSON(w, http.StatusAccepted, SubmitResponse{ID: id})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	entries, err := s.store.Recent(r.Context(), r.URL.Query().Get("type"), limit)
	if err != nil {
		s.logger.Error("journal query failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not query journal")
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("journal stats failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not query journal")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

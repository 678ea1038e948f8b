//
// Tencent is pleased to support the open source community by making trpc-sqlchat-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-sqlchat-go is licensed under the Apache License Version 2.0.
//
//

// Package server exposes the query pipeline over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"trpc.group/trpc-go/trpc-sqlchat-go/log"
	"trpc.group/trpc-go/trpc-sqlchat-go/orchestrator"
	"trpc.group/trpc-go/trpc-sqlchat-go/session"
)

// Server routes HTTP requests onto the orchestrator and session store.
type Server struct {
	router       *mux.Router
	handler      http.Handler
	orch         *orchestrator.Orchestrator
	sessions     session.Service
	schema       orchestrator.SchemaProvider
	awaitTimeout time.Duration
	origins      []string
}

// Option configures the Server.
type Option func(*Server)

// WithAwaitTimeout bounds how long a query request waits for its job.
func WithAwaitTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.awaitTimeout = d
		}
	}
}

// WithAllowedOrigins sets the CORS origin whitelist.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// New creates the HTTP server over the given collaborators.
func New(orch *orchestrator.Orchestrator, sessions session.Service, schema orchestrator.SchemaProvider, opts ...Option) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		orch:         orch,
		sessions:     sessions,
		schema:       schema,
		awaitTimeout: orchestrator.DefaultAwaitTimeout,
		origins:      []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
	})
	s.router.Use(c.Handler)
	s.registerRoutes()
	s.handler = s.router
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/api/query", s.handleQuery).Methods(http.MethodPost)
	s.router.HandleFunc("/api/history/{session_id}", s.handleHistory).Methods(http.MethodGet)
	s.router.HandleFunc("/api/session/{session_id}", s.handleClearSession).Methods(http.MethodDelete)
	s.router.HandleFunc("/api/session/{session_id}/stats", s.handleSessionStats).Methods(http.MethodGet)
	s.router.HandleFunc("/api/schema", s.handleSchema).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	preflight := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
	s.router.HandleFunc("/api/query", preflight).Methods(http.MethodOptions)
	s.router.HandleFunc("/api/session/{session_id}", preflight).Methods(http.MethodOptions)
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId"`
}

type queryResponse struct {
	SessionID string `json:"sessionId"`
	*orchestrator.Result
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		s.writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	ctx := r.Context()
	sessionID := req.SessionID
	if sessionID == "" {
		id, err := s.sessions.CreateSession(ctx)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "failed to create session")
			return
		}
		sessionID = id
	}

	history, err := s.sessions.GetConversationHistory(ctx, sessionID)
	if err != nil {
		log.Warnf("history read failed for session %s: %v", sessionID, err)
	}

	job, err := s.orch.Submit(ctx, req.Query, sessionID, history)
	if err != nil {
		if errors.Is(err, orchestrator.ErrRateLimited) {
			s.writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}
		log.Errorf("job submission failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to submit query")
		return
	}

	result, err := job.Await(s.awaitTimeout)
	if err != nil {
		s.writeError(w, http.StatusGatewayTimeout, err.Error())
		return
	}
	s.writeJSON(w, queryResponse{SessionID: sessionID, Result: result})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]
	history, err := s.sessions.GetConversationHistory(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	s.writeJSON(w, map[string]any{
		"sessionId": sessionID,
		"history":   history,
		"count":     len(history),
	})
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]
	if err := s.sessions.ClearSession(r.Context(), sessionID); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to clear session")
		return
	}
	s.writeJSON(w, map[string]any{
		"sessionId": sessionID,
		"message":   "session cleared",
	})
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]
	stats, err := s.sessions.Stats(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to read session stats")
		return
	}
	s.writeJSON(w, stats)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.schema.GetSchema(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "schema unavailable: "+err.Error())
		return
	}
	s.writeJSON(w, snapshot)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.HealthCheck(r.Context()) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "degraded", "redis": "unreachable"})
		return
	}
	s.writeJSON(w, map[string]any{"status": "ok", "redis": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

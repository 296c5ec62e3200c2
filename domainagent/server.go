// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package domainagent

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// chatRequest is the POST /chat request body (§6).
type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// chatResponse is the POST /chat response body (§6): {reply}.
type chatResponse struct {
	Reply       string       `json:"reply"`
	Diagnostics *Diagnostics `json:"diagnostics,omitempty"`
}

// Server binds the Domain Agent's HTTP surface (§6): POST /chat returns 200
// on both success and graceful refusal, 5xx only on internal invariant
// violation, matching the a2a.Server's chi-based transport style.
type Server struct {
	Addr   string
	Agent  *Agent
	Logger *slog.Logger

	httpServer *http.Server
}

func NewServer(addr string, agent *Agent, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Addr: addr, Agent: agent, Logger: logger}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logging)
	r.Post("/chat", s.handleChat)
	return r
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		s.Logger.Info("chat request", "component", "domainagent-server", "method", r.Method,
			"path", r.URL.Path, "latency_ms", time.Since(started).Milliseconds())
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, chatResponse{Reply: "malformed request"})
		return
	}

	withDiagnostics := r.URL.Query().Get("diagnostics") == "true"
	result := s.Agent.Chat(r.Context(), req.SessionID, req.Message, withDiagnostics)
	writeJSON(w, http.StatusOK, chatResponse{Reply: result.ReplyText, Diagnostics: result.Diagnostics})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{Addr: s.Addr, Handler: s.router()}
	s.Logger.Info("domain agent server starting", "component", "domainagent-server", "addr", s.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

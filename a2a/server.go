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

package a2a

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/northbridge-ins/agentcore/internal/taskerr"
)

// Server binds an a2a.Handler to HTTP POST /a2a/tasks, bounding concurrent
// task handling with a buffered-channel semaphore (§5: default 64,
// refuse-not-queue per §9's backpressure design note).
type Server struct {
	Addr        string
	Card        AgentCard
	Handler     Handler
	Concurrency int
	Logger      *slog.Logger

	httpServer *http.Server
	sem        chan struct{}
}

func NewServer(addr string, card AgentCard, handler Handler, concurrency int, logger *slog.Logger) *Server {
	if concurrency <= 0 {
		concurrency = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Addr:        addr,
		Card:        card,
		Handler:     handler,
		Concurrency: concurrency,
		Logger:      logger,
		sem:         make(chan struct{}, concurrency),
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logging)

	r.Post("/a2a/tasks", s.handleTask)
	r.Get("/a2a/agent-card", s.handleAgentCard)

	return r
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		s.Logger.Info("a2a request", "component", "a2a-server", "method", r.Method,
			"path", r.URL.Path, "latency_ms", time.Since(started).Milliseconds())
	})
}

func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Card)
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	default:
		writeJSON(w, http.StatusServiceUnavailable,
			FailedReply("", string(taskerr.Overloaded), "server at capacity"))
		return
	}

	var task Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		writeJSON(w, http.StatusBadRequest,
			FailedReply("", string(taskerr.ProtocolMismatch), "malformed task envelope"))
		return
	}

	started := time.Now()
	reply, err := s.Handler.HandleTask(r.Context(), task)
	s.Logger.Info("a2a task handled", "component", "a2a-server", "task_id", task.TaskID,
		"latency_ms", time.Since(started).Milliseconds())
	if err != nil {
		reply = FailedReply(task.TaskID, string(taskerr.KindOf(err)), err.Error())
	}

	writeJSON(w, http.StatusOK, reply)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{Addr: s.Addr, Handler: s.router()}
	s.Logger.Info("a2a server starting", "component", "a2a-server", "addr", s.Addr, "agent_id", s.Card.AgentID)
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

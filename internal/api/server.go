// Package api exposes the assistant over HTTP: chat, cache administration,
// and migration status.
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zuru-melon/assistant/internal/agent"
	"github.com/zuru-melon/assistant/internal/cache"
	"github.com/zuru-melon/assistant/internal/common"
	"github.com/zuru-melon/assistant/internal/migrate"
	"github.com/zuru-melon/assistant/internal/usage"
)

// Server routes HTTP requests to the assistant. Each chat session gets its
// own Assistant so conversation histories never interleave.
type Server struct {
	router  chi.Router
	caches  *cache.Manager
	runner  *migrate.Runner
	tracker *usage.Tracker

	newAssistant func() *agent.Assistant

	mu       sync.Mutex
	sessions map[string]*agent.Assistant
}

// Config wires the server's collaborators. NewAssistant is called once per
// chat session.
type Config struct {
	NewAssistant func() *agent.Assistant
	Caches       *cache.Manager
	Runner       *migrate.Runner
	Tracker      *usage.Tracker
}

// NewServer builds the router and handler set.
func NewServer(cfg Config) *Server {
	srv := &Server{
		router:       chi.NewRouter(),
		caches:       cfg.Caches,
		runner:       cfg.Runner,
		tracker:      cfg.Tracker,
		newAssistant: cfg.NewAssistant,
		sessions:     map[string]*agent.Assistant{},
	}
	srv.routes()
	common.Logger().Info("api: server ready")
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Post("/api/chat", s.handleChat)
	s.router.Get("/api/cache/stats", s.handleCacheStats)
	s.router.Post("/api/cache/clear", s.handleCacheClear)
	s.router.Post("/api/cache/purge", s.handleCachePurge)
	s.router.Get("/api/migrations/status", s.handleMigrationStatus)
	s.router.Get("/api/usage", s.handleUsage)
}

// session returns the assistant bound to id, minting a fresh session when id
// is empty or unknown. The returned id identifies the session in either case.
func (s *Server) session(id string) (string, *agent.Assistant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		if a, ok := s.sessions[id]; ok {
			return id, a
		}
	}
	id = uuid.NewString()
	a := s.newAssistant()
	s.sessions[id] = a
	common.Logger().Debug("api: new chat session", "session_id", id)
	return id, a
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

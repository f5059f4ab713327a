package api

import (
	"fmt"
	"net/http"

	"github.com/zuru-melon/assistant/internal/cache"
)

// namespaceParam resolves the cache namespace from the query string,
// defaulting to the classic assistant's partition.
func namespaceParam(r *http.Request) string {
	if ns := r.URL.Query().Get("namespace"); ns != "" {
		return ns
	}
	return cache.DefaultNamespace
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.caches == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("cache disabled"))
		return
	}
	stats, err := s.caches.Cache(namespaceParam(r)).Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if s.caches == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("cache disabled"))
		return
	}
	namespace := namespaceParam(r)
	deleted, err := s.caches.Cache(namespace).Clear(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Namespace: namespace, Deleted: deleted})
}

func (s *Server) handleCachePurge(w http.ResponseWriter, r *http.Request) {
	if s.caches == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("cache disabled"))
		return
	}
	namespace := namespaceParam(r)
	deleted, err := s.caches.Cache(namespace).PurgeExpired(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Namespace: namespace, Deleted: deleted})
}

package api

import (
	"fmt"
	"net/http"
)

func (s *Server) handleMigrationStatus(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("migrations unavailable"))
		return
	}
	status, err := s.runner.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

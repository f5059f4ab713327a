package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/zuru-melon/assistant/internal/common"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: chat decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("query required"))
		return
	}
	sessionID, assistant := s.session(req.SessionID)
	logger.Info("api: chat request", "session_id", sessionID, "query_length", len(req.Query))

	reply, err := assistant.Ask(r.Context(), req.Query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{SessionID: sessionID, Reply: reply})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("usage tracking disabled"))
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.Summarize())
}

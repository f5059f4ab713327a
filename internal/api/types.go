package api

import "github.com/zuru-melon/assistant/internal/agent"

type chatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Query     string `json:"query"`
}

type chatResponse struct {
	SessionID string       `json:"session_id"`
	Reply     *agent.Reply `json:"reply"`
}

type mutationResponse struct {
	Namespace string `json:"namespace"`
	Deleted   int64  `json:"deleted"`
}

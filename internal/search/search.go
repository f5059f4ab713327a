// Package search answers time-sensitive queries with fresh web content,
// primarily by asking an online-connected search model and falling back to
// the Serper REST API when configured.
package search

import (
	"context"
	"net/http"
	"time"

	"github.com/zuru-melon/assistant/internal/common"
	"github.com/zuru-melon/assistant/internal/llm"
	"github.com/zuru-melon/assistant/internal/usage"
)

const searchSystemPrompt = "You are a helpful search assistant. Provide accurate, " +
	"up-to-date information with sources when available. Be concise but complete."

// Client performs web searches. Failures degrade to an error message in the
// returned text so a broken search never aborts the user's query.
type Client struct {
	provider  llm.Provider
	model     string
	serperKey string
	tracker   *usage.Tracker
	http      *http.Client
}

// New builds a search client. serperKey may be empty; the Serper fallback
// is then disabled. A nil tracker disables usage recording.
func New(provider llm.Provider, model, serperKey string, tracker *usage.Tracker) *Client {
	return &Client{
		provider:  provider,
		model:     model,
		serperKey: serperKey,
		tracker:   tracker,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

// Search runs the query through the search model; on failure it tries the
// Serper fallback, and as a last resort returns the error as text.
func (c *Client) Search(ctx context.Context, query string) string {
	logger := common.Logger()
	logger.Debug("search: query", "query", query)
	answer, err := c.provider.Chat(ctx, llm.Request{
		Model:    c.model,
		CallType: "search",
		Messages: []llm.Message{
			{Role: "system", Content: searchSystemPrompt},
			{Role: "user", Content: query},
		},
	})
	if err == nil {
		logger.Debug("search: model answered", "chars", len(answer))
		return answer
	}
	logger.Warn("search: model search failed", "error", err)
	if c.serperKey != "" {
		results, serperErr := c.serper(ctx, query, 5)
		if serperErr == nil {
			return results
		}
		logger.Warn("search: serper fallback failed", "error", serperErr)
		return "Search error: " + serperErr.Error()
	}
	return "Search error: " + err.Error()
}

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/zuru-melon/assistant/internal/usage"
)

const serperEndpoint = "https://google.serper.dev/search"

type serperResult struct {
	Organic []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"organic"`
}

// serper queries the Serper.dev Google Search API and formats the organic
// results as a numbered list.
func (c *Client) serper(ctx context.Context, query string, numResults int) (string, error) {
	payload, err := json.Marshal(map[string]any{"q": query, "num": numResults})
	if err != nil {
		return "", fmt.Errorf("encode serper request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serperEndpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build serper request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.serperKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("serper request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("serper request: unexpected status %d", resp.StatusCode)
	}
	var result serperResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode serper response: %w", err)
	}
	if c.tracker != nil {
		c.tracker.Add(usage.TokenUsage{Model: "serper", CallType: "search"})
	}
	if len(result.Organic) == 0 {
		return "No results found.", nil
	}
	var b strings.Builder
	for i, r := range result.Organic {
		if i >= numResults {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n\n", i+1, r.Title, r.Snippet, r.Link)
	}
	return strings.TrimSpace(b.String()), nil
}

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zuru-melon/assistant/internal/common"
	"github.com/zuru-melon/assistant/internal/knowledge"
	"github.com/zuru-melon/assistant/internal/llm"
)

// ActionType classifies how a query should be handled.
type ActionType string

const (
	ActionKnowledgeBase ActionType = "knowledge_base"
	ActionWebSearch     ActionType = "web_search"
	ActionLLMOnly       ActionType = "llm_only"
	ActionClarify       ActionType = "clarify"
	ActionBlocked       ActionType = "blocked"
)

// Cacheable reports whether answers produced under this action may be
// persisted. Web search content is time-varying and never cached.
func (a ActionType) Cacheable() bool {
	return a != ActionWebSearch
}

func (a ActionType) valid() bool {
	switch a {
	case ActionKnowledgeBase, ActionWebSearch, ActionLLMOnly, ActionClarify, ActionBlocked:
		return true
	}
	return false
}

// RoutingDecision is the orchestrator model's structured verdict on a query.
type RoutingDecision struct {
	Reason        string     `json:"reason"`
	Action        ActionType `json:"action"`
	Document      string     `json:"document,omitempty"`
	SearchQuery   string     `json:"search_query,omitempty"`
	Clarification string     `json:"clarification,omitempty"`
	PoliteRefusal string     `json:"answer_polite_refusal,omitempty"`
}

const routingPrompt = `You are a query router for a company assistant.
Decide how to handle user queries.

## Available company documents
%s

## Safety guidelines
%s

## Routing rules
1. knowledge_base: For company-specific info (policies, procedures, coding style).
   Set "document" to the exact filename.
2. web_search: For current/external info (news, facts, tools). Set "search_query"
   to an optimized query. Use this for latest news and queries whose answer can
   change over time.
3. llm_only: For general knowledge you can answer directly, when the knowledge
   does not change over time and you know it.
4. clarify: If the query is ambiguous or very general. Set "clarification" to
   your question.
5. blocked: If the query is harmful. Set "answer_polite_refusal" to a polite
   refusal in the user's language.

Prefer knowledge_base for anything about ZURU Melon company. Answer in the
user's language.

Respond with ONLY a JSON object of this shape, no prose and no code fences:
{"reason": "...", "action": "knowledge_base|web_search|llm_only|clarify|blocked",
 "document": "...", "search_query": "...", "clarification": "...",
 "answer_polite_refusal": "..."}`

// routeRetries bounds how often a malformed routing response is retried.
const routeRetries = 3

// Route asks the orchestrator model to classify a query. Malformed JSON is
// retried up to routeRetries times before the error surfaces.
func Route(ctx context.Context, provider llm.Provider, model string, documents map[string]knowledge.Document, history []llm.Message) (*RoutingDecision, error) {
	logger := common.Logger()
	system := fmt.Sprintf(routingPrompt, knowledge.SummariesPrompt(documents), SafetyPrompt())

	userContent := historyContext(history, 8)
	logger.Debug("router: input", "history_messages", len(history))

	var lastErr error
	for attempt := 1; attempt <= routeRetries; attempt++ {
		raw, err := provider.Chat(ctx, llm.Request{
			Model:    model,
			CallType: "routing",
			Messages: []llm.Message{
				{Role: "system", Content: system},
				{Role: "user", Content: userContent},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("routing call: %w", err)
		}
		decision, err := parseDecision(raw)
		if err != nil {
			logger.Warn("router: unparseable decision", "attempt", attempt, "error", err)
			lastErr = err
			continue
		}
		logger.Debug("router: decision", "action", decision.Action, "reason", decision.Reason,
			"document", decision.Document, "search_query", decision.SearchQuery)
		return decision, nil
	}
	return nil, fmt.Errorf("routing decision after %d attempts: %w", routeRetries, lastErr)
}

// historyContext renders the last n conversation messages plus the current
// query, which is expected to be the final history entry.
func historyContext(history []llm.Message, n int) string {
	if len(history) == 0 {
		return ""
	}
	current := history[len(history)-1]
	previous := history[:len(history)-1]
	if len(previous) == 0 {
		return "Query: " + current.Content
	}
	if len(previous) > n {
		previous = previous[len(previous)-n:]
	}
	var b strings.Builder
	b.WriteString("Recent conversation:\n")
	for _, msg := range previous {
		role := "User"
		if strings.EqualFold(msg.Role, "assistant") {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, msg.Content)
	}
	b.WriteString("\nCurrent query: " + current.Content)
	return b.String()
}

// parseDecision extracts the routing JSON from a model response, tolerating
// code fences and surrounding prose.
func parseDecision(raw string) (*RoutingDecision, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}
	var decision RoutingDecision
	if err := json.Unmarshal([]byte(raw[start:end+1]), &decision); err != nil {
		return nil, fmt.Errorf("decode routing decision: %w", err)
	}
	decision.Action = ActionType(strings.ToLower(strings.TrimSpace(string(decision.Action))))
	if !decision.Action.valid() {
		return nil, fmt.Errorf("unknown action %q", decision.Action)
	}
	return &decision, nil
}

// Package agent implements the query-answering pipeline: routing, answer
// generation, and the response cache in front of both.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zuru-melon/assistant/internal/cache"
	"github.com/zuru-melon/assistant/internal/common"
	"github.com/zuru-melon/assistant/internal/knowledge"
	"github.com/zuru-melon/assistant/internal/llm"
	"github.com/zuru-melon/assistant/internal/search"
)

const responsePrompt = `You are a helpful assistant for ZURU Melon employees.
Answer the user's question using the provided context when it is relevant.
Be concise, accurate, and answer in the user's language.

%s

## Context
%s`

// history windows: how many prior messages feed generation and routing.
const (
	generationWindow = 4
	routingWindow    = 8
)

// Config wires an Assistant's collaborators.
type Config struct {
	Provider          llm.Provider
	Search            *search.Client
	Documents         map[string]knowledge.Document
	Cache             *cache.QueryCache
	GeneratorModel    string
	OrchestratorModel string
}

// Reply is one assistant answer plus where it came from.
type Reply struct {
	Answer    string     `json:"answer"`
	Action    ActionType `json:"action"`
	FromCache bool       `json:"from_cache"`
	HitCount  int64      `json:"hit_count,omitempty"`
	CachedAt  time.Time  `json:"cached_at,omitempty"`
}

// Assistant is the classic route-then-generate pipeline. Conversation
// history is per-instance; guard with the mutex when shared across requests.
type Assistant struct {
	cfg Config

	mu      sync.Mutex
	history []llm.Message
}

// NewAssistant builds the classic assistant. cfg.Cache may be nil, which
// disables response caching entirely.
func NewAssistant(cfg Config) *Assistant {
	return &Assistant{cfg: cfg}
}

// Reset drops the conversation history.
func (a *Assistant) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = nil
}

// Documents exposes the loaded knowledge base.
func (a *Assistant) Documents() map[string]knowledge.Document {
	return a.cfg.Documents
}

// Cache exposes the response cache; nil when caching is disabled.
func (a *Assistant) Cache() *cache.QueryCache { return a.cfg.Cache }

// Ask answers one query. The cache is consulted before any model call; on a
// miss the query is routed and the answer generated per the routing action.
// Answers from routes other than web search are persisted. Cache failures
// are logged and degrade to uncached operation, never failed queries.
func (a *Assistant) Ask(ctx context.Context, query string) (*Reply, error) {
	logger := common.Logger()

	if cached := a.lookupCache(ctx, query); cached != nil {
		a.remember(query, cached.Response)
		return &Reply{
			Answer:    cached.Response,
			Action:    ActionType(cached.RoutingAction),
			FromCache: true,
			HitCount:  cached.HitCount,
			CachedAt:  cached.CreatedAt,
		}, nil
	}

	a.mu.Lock()
	routeHistory := appendWindow(a.history, routingWindow, llm.Message{Role: "user", Content: query})
	genHistory := window(a.history, generationWindow)
	a.mu.Unlock()

	decision, err := Route(ctx, a.cfg.Provider, a.cfg.OrchestratorModel, a.cfg.Documents, routeHistory)
	if err != nil {
		return nil, err
	}

	var answer string
	switch decision.Action {
	case ActionKnowledgeBase:
		doc, ok := a.cfg.Documents[decision.Document]
		if !ok {
			logger.Warn("agent: routed to unknown document", "document", decision.Document)
			answer, err = a.generate(ctx, query, "", genHistory)
		} else {
			answer, err = a.generate(ctx, query, doc.Content, genHistory)
		}
	case ActionWebSearch:
		searchQuery := decision.SearchQuery
		if searchQuery == "" {
			searchQuery = query
		}
		results := a.cfg.Search.Search(ctx, searchQuery)
		answer, err = a.generate(ctx, query, "Web search results:\n"+results, genHistory)
	case ActionLLMOnly:
		answer, err = a.generate(ctx, query, "", genHistory)
	case ActionClarify:
		answer = decision.Clarification
		if answer == "" {
			answer = "Could you rephrase your question with a bit more detail?"
		}
	case ActionBlocked:
		answer = decision.PoliteRefusal
		if answer == "" {
			answer = "I'm sorry, but I can't help with that request."
		}
	default:
		return nil, fmt.Errorf("unhandled routing action %q", decision.Action)
	}
	if err != nil {
		return nil, err
	}

	a.remember(query, answer)
	if decision.Action.Cacheable() {
		a.storeCache(ctx, query, answer, string(decision.Action))
	}
	return &Reply{Answer: answer, Action: decision.Action}, nil
}

// generate produces the final answer with the given context block. An empty
// context still includes the safety guidelines.
func (a *Assistant) generate(ctx context.Context, query, contextBlock string, history []llm.Message) (string, error) {
	system := fmt.Sprintf(responsePrompt, SafetyPrompt(), contextBlock)
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: system})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: query})

	answer, err := a.cfg.Provider.Chat(ctx, llm.Request{
		Model:       a.cfg.GeneratorModel,
		Temperature: 0.3,
		CallType:    "generation",
		Messages:    messages,
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return answer, nil
}

func (a *Assistant) lookupCache(ctx context.Context, query string) *cache.CachedResponse {
	if a.cfg.Cache == nil {
		return nil
	}
	cached, err := a.cfg.Cache.Get(ctx, query)
	if err != nil {
		common.Logger().Warn("agent: cache lookup failed", "error", err)
		return nil
	}
	if cached != nil {
		common.Logger().Debug("agent: cache hit", "hits", cached.HitCount, "action", cached.RoutingAction)
	}
	return cached
}

func (a *Assistant) storeCache(ctx context.Context, query, answer, action string) {
	if a.cfg.Cache == nil {
		return
	}
	if err := a.cfg.Cache.Set(ctx, query, answer, action); err != nil {
		common.Logger().Warn("agent: cache store failed", "error", err)
	}
}

func (a *Assistant) remember(query, answer string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history,
		llm.Message{Role: "user", Content: query},
		llm.Message{Role: "assistant", Content: answer},
	)
}

// window returns the trailing n messages of history.
func window(history []llm.Message, n int) []llm.Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// appendWindow returns the trailing n messages plus the extra message.
func appendWindow(history []llm.Message, n int, extra llm.Message) []llm.Message {
	out := make([]llm.Message, 0, n+1)
	out = append(out, window(history, n)...)
	return append(out, extra)
}

package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/agents"
	"github.com/tmc/langchaingo/chains"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/memory"
	"github.com/tmc/langchaingo/tools"

	"github.com/zuru-melon/assistant/internal/cache"
	"github.com/zuru-melon/assistant/internal/common"
	"github.com/zuru-melon/assistant/internal/knowledge"
	"github.com/zuru-melon/assistant/internal/search"
)

// AgenticNamespace partitions cache entries written by the tool-calling
// assistant so the two pipelines never serve each other's answers.
const AgenticNamespace = "agentic"

const agentIterations = 3

// AgenticConfig wires the tool-calling assistant.
type AgenticConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Search    *search.Client
	Documents map[string]knowledge.Document
	Cache     *cache.QueryCache
}

// AgenticAssistant answers queries with a ReAct agent that decides for
// itself when to consult the knowledge base or the web. Tool-call traces
// make it slower than the classic pipeline but better on multi-step
// questions.
type AgenticAssistant struct {
	cfg      AgenticConfig
	executor *agents.Executor
	webTool  *webSearchTool

	mu sync.Mutex
}

// NewAgenticAssistant builds the agent executor with the knowledge-base and
// web-search tools bound.
func NewAgenticAssistant(cfg AgenticConfig) (*AgenticAssistant, error) {
	opts := []lcopenai.Option{
		lcopenai.WithToken(cfg.APIKey),
		lcopenai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(cfg.BaseURL))
	}
	model, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("build agent model: %w", err)
	}

	webTool := &webSearchTool{search: cfg.Search}
	agentTools := []tools.Tool{
		&kbSearchTool{documents: cfg.Documents},
		webTool,
	}
	agent := agents.NewOneShotAgent(model, agentTools,
		agents.WithMaxIterations(agentIterations))
	executor := agents.NewExecutor(agent,
		agents.WithMemory(memory.NewConversationWindowBuffer(routingWindow)))

	common.Logger().Info("agent: agentic executor ready",
		"model", cfg.Model, "tools", len(agentTools))
	return &AgenticAssistant{cfg: cfg, executor: executor, webTool: webTool}, nil
}

// Cache exposes the response cache; nil when caching is disabled.
func (a *AgenticAssistant) Cache() *cache.QueryCache { return a.cfg.Cache }

// Documents exposes the loaded knowledge base.
func (a *AgenticAssistant) Documents() map[string]knowledge.Document {
	return a.cfg.Documents
}

// Ask answers one query through the agent executor. Answers are cached
// under the agentic namespace unless the web-search tool ran during the
// turn, since those answers depend on live results.
func (a *AgenticAssistant) Ask(ctx context.Context, query string) (*Reply, error) {
	logger := common.Logger()

	if a.cfg.Cache != nil {
		cached, err := a.cfg.Cache.Get(ctx, query)
		if err != nil {
			logger.Warn("agent: cache lookup failed", "error", err)
		} else if cached != nil {
			return &Reply{
				Answer:    cached.Response,
				Action:    ActionType(cached.RoutingAction),
				FromCache: true,
				HitCount:  cached.HitCount,
				CachedAt:  cached.CreatedAt,
			}, nil
		}
	}

	// Executor memory is stateful; one turn at a time.
	a.mu.Lock()
	a.webTool.reset()
	started := time.Now()
	answer, err := chains.Run(ctx, a.executor, query)
	webUsed := a.webTool.used()
	a.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("agent run: %w", err)
	}
	logger.Debug("agent: turn complete",
		"elapsed", time.Since(started).Round(time.Millisecond), "web_search", webUsed)

	action := ActionKnowledgeBase
	if webUsed {
		action = ActionWebSearch
	}
	if a.cfg.Cache != nil && !webUsed {
		if err := a.cfg.Cache.Set(ctx, query, answer, string(action)); err != nil {
			logger.Warn("agent: cache store failed", "error", err)
		}
	}
	return &Reply{Answer: answer, Action: action}, nil
}

// kbSearchTool serves company document content to the agent.
type kbSearchTool struct {
	documents map[string]knowledge.Document
}

func (t *kbSearchTool) Name() string { return "kb_search" }

func (t *kbSearchTool) Description() string {
	names := make([]string, 0, len(t.documents))
	for filename := range t.documents {
		names = append(names, filename)
	}
	sort.Strings(names)
	return "Look up ZURU Melon company documents (policies, procedures, coding style). " +
		"Input: a document filename, one of: " + strings.Join(names, ", ") + ". " +
		"Returns the full document text."
}

func (t *kbSearchTool) Call(_ context.Context, input string) (string, error) {
	name := strings.TrimSpace(input)
	if doc, ok := t.documents[name]; ok {
		return doc.Content, nil
	}
	// Fuzzy match so "company policies" still resolves.
	needle := strings.ToLower(strings.TrimSuffix(name, ".md"))
	for filename, doc := range t.documents {
		if strings.Contains(strings.ToLower(filename), strings.ReplaceAll(needle, " ", "_")) {
			return doc.Content, nil
		}
	}
	return "No document named " + name + ". " + t.Description(), nil
}

// webSearchTool wraps the search client and records whether it ran, so the
// caller can skip caching answers built on live results.
type webSearchTool struct {
	search *search.Client

	mu     sync.Mutex
	called bool
}

func (t *webSearchTool) Name() string { return "web_search" }

func (t *webSearchTool) Description() string {
	return "Search the web for current or external information: news, facts, " +
		"tools, anything not covered by company documents. Input: a search query."
}

func (t *webSearchTool) Call(ctx context.Context, input string) (string, error) {
	t.mu.Lock()
	t.called = true
	t.mu.Unlock()
	return t.search.Search(ctx, input), nil
}

func (t *webSearchTool) reset() {
	t.mu.Lock()
	t.called = false
	t.mu.Unlock()
}

func (t *webSearchTool) used() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.called
}

package agent

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zuru-melon/assistant/internal/cache"
	"github.com/zuru-melon/assistant/internal/migrate"
	"github.com/zuru-melon/assistant/internal/search"
	"github.com/zuru-melon/assistant/internal/store"
)

func newTestCache(t *testing.T, namespace string) *cache.QueryCache {
	t.Helper()
	storeCfg := store.Config{Path: filepath.Join(t.TempDir(), "agent_test.db")}
	runner := migrate.New(migrate.Config{
		Store: storeCfg,
		Dir:   filepath.Join("..", "..", "migrations"),
	})
	defer runner.Close()
	result, err := runner.Migrate(context.Background(), "")
	if err != nil || len(result.Failed) > 0 {
		t.Fatalf("migrations: %v %v", err, result)
	}
	c := cache.New(cache.Config{Store: storeCfg, Namespace: namespace, TTL: time.Hour})
	t.Cleanup(func() { c.Close() })
	return c
}

func newTestAssistant(provider *fakeProvider, c *cache.QueryCache) *Assistant {
	return NewAssistant(Config{
		Provider:          provider,
		Search:            search.New(provider, "search-model", "", nil),
		Documents:         testDocuments(),
		Cache:             c,
		GeneratorModel:    "gen-model",
		OrchestratorModel: "orch-model",
	})
}

const routeKB = `{"reason": "company topic", "action": "knowledge_base", "document": "company_policies.md"}`

func TestAskKnowledgeBase(t *testing.T) {
	provider := &fakeProvider{responses: []string{routeKB, "You may work remotely twice a week."}}
	a := newTestAssistant(provider, nil)

	reply, err := a.Ask(context.Background(), "What is the remote work policy?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if reply.Answer != "You may work remotely twice a week." {
		t.Fatalf("answer = %q", reply.Answer)
	}
	if reply.Action != ActionKnowledgeBase || reply.FromCache {
		t.Fatalf("reply metadata = %+v", reply)
	}

	calls := provider.calls()
	if len(calls) != 2 {
		t.Fatalf("provider called %d times, want routing + generation", len(calls))
	}
	gen := calls[1]
	if gen.CallType != "generation" || gen.Model != "gen-model" {
		t.Fatalf("generation call = %+v", gen)
	}
	if gen.Temperature != 0.3 {
		t.Fatalf("generation temperature = %v", gen.Temperature)
	}
	if !strings.Contains(gen.Messages[0].Content, "Remote work is allowed two days a week.") {
		t.Fatal("generation prompt missing the routed document content")
	}
}

func TestAskUnknownDocumentStillAnswers(t *testing.T) {
	route := `{"reason": "r", "action": "knowledge_base", "document": "missing.md"}`
	provider := &fakeProvider{responses: []string{route, "best effort answer"}}
	a := newTestAssistant(provider, nil)

	reply, err := a.Ask(context.Background(), "question")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if reply.Answer != "best effort answer" {
		t.Fatalf("answer = %q", reply.Answer)
	}
}

func TestAskClarifyAndBlockedSkipGeneration(t *testing.T) {
	cases := []struct {
		name   string
		route  string
		want   string
		action ActionType
	}{
		{
			name:   "clarify",
			route:  `{"reason": "vague", "action": "clarify", "clarification": "Which project do you mean?"}`,
			want:   "Which project do you mean?",
			action: ActionClarify,
		},
		{
			name:   "blocked",
			route:  `{"reason": "harmful", "action": "blocked", "answer_polite_refusal": "I can't help with that."}`,
			want:   "I can't help with that.",
			action: ActionBlocked,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := &fakeProvider{responses: []string{tc.route}}
			a := newTestAssistant(provider, nil)
			reply, err := a.Ask(context.Background(), "query")
			if err != nil {
				t.Fatalf("ask: %v", err)
			}
			if reply.Answer != tc.want || reply.Action != tc.action {
				t.Fatalf("reply = %+v", reply)
			}
			if calls := provider.calls(); len(calls) != 1 {
				t.Fatalf("provider called %d times, want routing only", len(calls))
			}
		})
	}
}

func TestAskServesSecondQueryFromCache(t *testing.T) {
	provider := &fakeProvider{responses: []string{routeKB, "cached answer"}}
	a := newTestAssistant(provider, newTestCache(t, cache.DefaultNamespace))
	ctx := context.Background()

	first, err := a.Ask(ctx, "What is the remote work policy?")
	if err != nil {
		t.Fatalf("first ask: %v", err)
	}
	if first.FromCache {
		t.Fatal("first answer cannot come from the cache")
	}

	// Equivalent phrasing must hit without any model call.
	second, err := a.Ask(ctx, "  what is the remote   work policy?? ")
	if err != nil {
		t.Fatalf("second ask: %v", err)
	}
	if !second.FromCache {
		t.Fatal("second answer should come from the cache")
	}
	if second.Answer != "cached answer" {
		t.Fatalf("answer = %q", second.Answer)
	}
	if second.HitCount != 2 {
		t.Fatalf("hit count = %d, want 2", second.HitCount)
	}
	if second.Action != ActionKnowledgeBase {
		t.Fatalf("cached action = %q", second.Action)
	}
	if calls := provider.calls(); len(calls) != 2 {
		t.Fatalf("provider called %d times, want no calls for the cache hit", len(calls))
	}
}

func TestAskWebSearchAnswersNotCached(t *testing.T) {
	routeWeb := `{"reason": "current info", "action": "web_search", "search_query": "latest go release"}`
	provider := &fakeProvider{responses: []string{
		routeWeb, "search results text", "Go 1.x is the latest release.",
	}}
	c := newTestCache(t, cache.DefaultNamespace)
	a := newTestAssistant(provider, c)
	ctx := context.Background()

	reply, err := a.Ask(ctx, "What is the latest Go release?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if reply.Action != ActionWebSearch {
		t.Fatalf("action = %q", reply.Action)
	}

	calls := provider.calls()
	if len(calls) != 3 {
		t.Fatalf("provider called %d times, want routing + search + generation", len(calls))
	}
	if calls[1].CallType != "search" {
		t.Fatalf("second call type = %q, want search", calls[1].CallType)
	}
	if !strings.Contains(calls[2].Messages[0].Content, "search results text") {
		t.Fatal("generation prompt missing search results")
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalEntries != 0 {
		t.Fatalf("cache holds %d entries, web search answers must not be stored", stats.TotalEntries)
	}
}

func TestAskDegradesWhenCacheUnavailable(t *testing.T) {
	// Pointing the cache at an uncreatable path makes every cache call fail.
	broken := cache.New(cache.Config{
		Store: store.Config{Path: filepath.Join(t.TempDir(), "missing", "sub", "dir", "x.db")},
		TTL:   time.Hour,
	})
	provider := &fakeProvider{responses: []string{routeKB, "still answered"}}
	a := newTestAssistant(provider, broken)

	reply, err := a.Ask(context.Background(), "question")
	if err != nil {
		t.Fatalf("ask with broken cache: %v", err)
	}
	if reply.Answer != "still answered" {
		t.Fatalf("answer = %q", reply.Answer)
	}
}

func TestAskCarriesConversationHistory(t *testing.T) {
	routeLLM := `{"reason": "general", "action": "llm_only"}`
	provider := &fakeProvider{responses: []string{
		routeLLM, "first answer",
		routeLLM, "second answer",
	}}
	a := newTestAssistant(provider, nil)
	ctx := context.Background()

	if _, err := a.Ask(ctx, "first question"); err != nil {
		t.Fatalf("first ask: %v", err)
	}
	if _, err := a.Ask(ctx, "second question"); err != nil {
		t.Fatalf("second ask: %v", err)
	}

	calls := provider.calls()
	secondRouting := calls[2]
	if !strings.Contains(secondRouting.Messages[1].Content, "first question") {
		t.Fatal("second routing call missing prior history")
	}
	secondGen := calls[3]
	var sawPrior bool
	for _, msg := range secondGen.Messages {
		if msg.Role == "assistant" && msg.Content == "first answer" {
			sawPrior = true
		}
	}
	if !sawPrior {
		t.Fatal("second generation call missing prior assistant turn")
	}

	a.Reset()
	provider.mu.Lock()
	provider.responses = []string{routeLLM, "post-reset answer"}
	provider.mu.Unlock()
	if _, err := a.Ask(ctx, "third question"); err != nil {
		t.Fatalf("third ask: %v", err)
	}
	thirdRouting := provider.calls()[4]
	if strings.Contains(thirdRouting.Messages[1].Content, "first question") {
		t.Fatal("reset should clear conversation history")
	}
}

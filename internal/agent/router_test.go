package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/zuru-melon/assistant/internal/knowledge"
	"github.com/zuru-melon/assistant/internal/llm"
)

// fakeProvider plays back scripted responses and records every request.
type fakeProvider struct {
	mu        sync.Mutex
	responses []string
	requests  []llm.Request
	err       error
}

func (f *fakeProvider) Chat(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", fmt.Errorf("no scripted response for call %d", len(f.requests))
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) calls() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.requests...)
}

func testDocuments() map[string]knowledge.Document {
	return map[string]knowledge.Document{
		"company_policies.md": {
			Name:     "Company Policies",
			Filename: "company_policies.md",
			Content:  "Remote work is allowed two days a week.",
			Summary:  "Company policies.",
		},
	}
}

func TestParseDecision(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    ActionType
		wantErr bool
	}{
		{
			name: "plain json",
			raw:  `{"reason": "company topic", "action": "knowledge_base", "document": "company_policies.md"}`,
			want: ActionKnowledgeBase,
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"reason\": \"r\", \"action\": \"web_search\", \"search_query\": \"latest go release\"}\n```",
			want: ActionWebSearch,
		},
		{
			name: "prose wrapped",
			raw:  `Sure! Here is the decision: {"reason": "r", "action": "llm_only"} hope that helps`,
			want: ActionLLMOnly,
		},
		{
			name: "uppercase action",
			raw:  `{"reason": "r", "action": "CLARIFY", "clarification": "which team?"}`,
			want: ActionClarify,
		},
		{
			name:    "unknown action",
			raw:     `{"reason": "r", "action": "escalate"}`,
			wantErr: true,
		},
		{
			name:    "no json at all",
			raw:     "I cannot answer that.",
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision, err := parseDecision(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", decision)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if decision.Action != tc.want {
				t.Fatalf("action = %q, want %q", decision.Action, tc.want)
			}
		})
	}
}

func TestRouteRetriesMalformedResponses(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		"not json",
		"still not json",
		`{"reason": "ok", "action": "llm_only"}`,
	}}
	decision, err := Route(context.Background(), provider, "model", testDocuments(),
		[]llm.Message{{Role: "user", Content: "what is gravity?"}})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if decision.Action != ActionLLMOnly {
		t.Fatalf("action = %q", decision.Action)
	}
	if calls := provider.calls(); len(calls) != 3 {
		t.Fatalf("provider called %d times, want 3", len(calls))
	}
}

func TestRouteGivesUpAfterRetries(t *testing.T) {
	provider := &fakeProvider{responses: []string{"junk", "junk", "junk"}}
	_, err := Route(context.Background(), provider, "model", testDocuments(),
		[]llm.Message{{Role: "user", Content: "q"}})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestRoutePromptIncludesDocumentsAndHistory(t *testing.T) {
	provider := &fakeProvider{responses: []string{`{"reason": "r", "action": "llm_only"}`}}
	history := []llm.Message{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer"},
		{Role: "user", Content: "current question"},
	}
	if _, err := Route(context.Background(), provider, "model", testDocuments(), history); err != nil {
		t.Fatalf("route: %v", err)
	}
	req := provider.calls()[0]
	if req.CallType != "routing" {
		t.Fatalf("call type = %q", req.CallType)
	}
	system := req.Messages[0].Content
	if !strings.Contains(system, "company_policies.md") {
		t.Fatal("routing prompt missing document summaries")
	}
	user := req.Messages[1].Content
	if !strings.Contains(user, "first question") || !strings.Contains(user, "Current query: current question") {
		t.Fatalf("routing input missing history:\n%s", user)
	}
}

func TestHistoryContextWindow(t *testing.T) {
	var history []llm.Message
	for i := 0; i < 10; i++ {
		history = append(history, llm.Message{Role: "user", Content: fmt.Sprintf("message %d", i)})
	}
	rendered := historyContext(history, 4)
	if strings.Contains(rendered, "message 4") {
		t.Fatal("messages outside the window must be dropped")
	}
	for _, want := range []string{"message 5", "message 8", "Current query: message 9"} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("rendered history missing %q:\n%s", want, rendered)
		}
	}
}

func TestActionCacheable(t *testing.T) {
	if ActionWebSearch.Cacheable() {
		t.Fatal("web search answers must not be cacheable")
	}
	for _, a := range []ActionType{ActionKnowledgeBase, ActionLLMOnly, ActionClarify, ActionBlocked} {
		if !a.Cacheable() {
			t.Fatalf("%s should be cacheable", a)
		}
	}
}

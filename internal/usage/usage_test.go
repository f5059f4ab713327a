package usage

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCost(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 500_000, Model: "openai/gpt-4.1-mini"}
	// 1M input at $0.40 plus 0.5M output at $1.60.
	if got := u.Cost(); !almostEqual(got, 0.40+0.80) {
		t.Fatalf("cost = %f, want 1.20", got)
	}
}

func TestCostPerRequestModels(t *testing.T) {
	u := TokenUsage{Model: "serper", CallType: "search"}
	if got := u.Cost(); !almostEqual(got, 0.001) {
		t.Fatalf("serper cost = %f, want 0.001 per request", got)
	}
}

func TestCostUnknownModel(t *testing.T) {
	u := TokenUsage{InputTokens: 100, OutputTokens: 100, Model: "mystery/model"}
	if got := u.Cost(); got != 0 {
		t.Fatalf("unknown model cost = %f, want 0", got)
	}
}

func TestTrackerSummarize(t *testing.T) {
	tr := NewTracker()
	tr.Add(TokenUsage{InputTokens: 100, OutputTokens: 50, Model: "openai/gpt-4.1-mini", CallType: "routing"})
	tr.Add(TokenUsage{InputTokens: 200, OutputTokens: 150, Model: "openai/gpt-4.1-mini", CallType: "generation"})
	tr.Add(TokenUsage{Model: "serper", CallType: "search"})

	s := tr.Summarize()
	if s.Calls != 3 {
		t.Fatalf("calls = %d, want 3", s.Calls)
	}
	if s.InputTokens != 300 || s.OutputTokens != 200 {
		t.Fatalf("tokens = %d/%d, want 300/200", s.InputTokens, s.OutputTokens)
	}
	if s.Cost <= 0 {
		t.Fatalf("cost = %f, want positive", s.Cost)
	}

	grouped := tr.ByCallType()
	if len(grouped) != 3 {
		t.Fatalf("grouped into %d call types, want 3", len(grouped))
	}
	if grouped["generation"].InputTokens != 200 {
		t.Fatalf("generation input = %d, want 200", grouped["generation"].InputTokens)
	}
}

func TestTrackerConcurrentAdds(t *testing.T) {
	tr := NewTracker()
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			for j := 0; j < 50; j++ {
				tr.Add(TokenUsage{InputTokens: 1, Model: "openai/gpt-4.1-mini"})
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	if s := tr.Summarize(); s.Calls != 400 {
		t.Fatalf("calls = %d, want 400", s.Calls)
	}
}

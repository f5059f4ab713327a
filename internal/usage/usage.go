// Package usage tracks token consumption and cost across LLM calls.
package usage

import (
	"sync"
)

// pricing is USD per million tokens (input/output) plus USD per thousand
// requests, keyed by OpenRouter model identifier.
var pricing = map[string]struct {
	input   float64
	output  float64
	request float64
}{
	"openai/gpt-4.1-mini":     {input: 0.40, output: 1.60},
	"openai/gpt-4.1":          {input: 2.0, output: 8.0},
	"openai/gpt-5-mini":       {input: 0.25, output: 2.0},
	"openai/gpt-5.1-chat":     {input: 1.25, output: 10.0},
	"google/gemini-2.5-flash": {input: 0.30, output: 2.50},
	"perplexity/sonar":        {input: 1.0, output: 1.0, request: 5.0},
	"serper":                  {request: 1.0},
}

// TokenUsage records one LLM or search call.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	Model        string
	CallType     string // routing, generation, search, agent
}

// TotalTokens returns input plus output tokens.
func (u TokenUsage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

// Cost returns the USD cost of this call, zero for unknown models.
func (u TokenUsage) Cost() float64 {
	p, ok := pricing[u.Model]
	if !ok {
		return 0
	}
	return float64(u.InputTokens)/1_000_000*p.input +
		float64(u.OutputTokens)/1_000_000*p.output +
		p.request/1_000
}

// Summary aggregates a tracker's recorded calls.
type Summary struct {
	Calls        int     `json:"calls"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	Cost         float64 `json:"cost_usd"`
}

// Tracker accumulates usage records. Safe for concurrent callers; every
// request handler shares one instance.
type Tracker struct {
	mu    sync.Mutex
	calls []TokenUsage
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Add records one call and returns it unchanged for logging.
func (t *Tracker) Add(u TokenUsage) TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, u)
	return u
}

// Summarize totals every recorded call.
func (t *Tracker) Summarize() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	var s Summary
	for _, u := range t.calls {
		s.Calls++
		s.InputTokens += u.InputTokens
		s.OutputTokens += u.OutputTokens
		s.Cost += u.Cost()
	}
	return s
}

// ByCallType totals recorded calls grouped by call type.
func (t *Tracker) ByCallType() map[string]Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	grouped := map[string]Summary{}
	for _, u := range t.calls {
		s := grouped[u.CallType]
		s.Calls++
		s.InputTokens += u.InputTokens
		s.OutputTokens += u.OutputTokens
		s.Cost += u.Cost()
		grouped[u.CallType] = s
	}
	return grouped
}

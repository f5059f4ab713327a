package providers

import "context"

// Message is one chat message in provider-neutral form.
type Message struct {
	Role    string
	Content string
}

// Request is a single chat completion call. Model and temperature travel
// per call because the assistant uses different models for routing,
// generation, and search.
type Request struct {
	Model       string
	Temperature float64
	CallType    string
	Messages    []Message
}

// Provider abstracts the text-generation backend.
type Provider interface {
	Chat(ctx context.Context, req Request) (string, error)
	Name() string
}

package providers

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/zuru-melon/assistant/internal/common"
	"github.com/zuru-melon/assistant/internal/usage"
)

// OpenAIProvider talks to any OpenAI-compatible chat completion endpoint.
// The assistant points it at OpenRouter via a custom base URL.
type OpenAIProvider struct {
	client  openai.Client
	tracker *usage.Tracker
}

// NewOpenAIProvider builds a provider for the given credentials. A nil
// tracker disables usage recording.
func NewOpenAIProvider(apiKey, baseURL string, tracker *usage.Tracker) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIProvider{client: openai.NewClient(opts...), tracker: tracker}
}

func (o *OpenAIProvider) Chat(ctx context.Context, req Request) (string, error) {
	logger := common.Logger()
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}
	params := openai.ChatCompletionNewParams{Model: openai.ChatModel(req.Model)}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	for _, msg := range req.Messages {
		switch strings.ToLower(msg.Role) {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}
	logger.Debug("llm: sending chat completion", "model", req.Model, "call_type", req.CallType, "messages", len(req.Messages))
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		logger.Error("llm: chat completion failed", "model", req.Model, "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	if o.tracker != nil {
		recorded := o.tracker.Add(usage.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			Model:        req.Model,
			CallType:     req.CallType,
		})
		logger.Debug("llm: token usage", "model", req.Model, "call_type", req.CallType,
			"input", recorded.InputTokens, "output", recorded.OutputTokens, "cost_usd", recorded.Cost())
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAIProvider) Name() string {
	return "openai"
}

// Package llm selects and configures the text-generation provider.
package llm

import (
	"strings"

	"github.com/zuru-melon/assistant/internal/common"
	"github.com/zuru-melon/assistant/internal/llm/providers"
	"github.com/zuru-melon/assistant/internal/usage"
)

type (
	Message  = providers.Message
	Request  = providers.Request
	Provider = providers.Provider
)

// NewProvider returns the OpenAI-compatible provider when an API key is
// configured, falling back to the local stub otherwise.
func NewProvider(apiKey, baseURL string, tracker *usage.Tracker) Provider {
	logger := common.Logger()
	if strings.TrimSpace(apiKey) != "" {
		if strings.TrimSpace(baseURL) != "" {
			logger.Info("llm: configuring client with custom endpoint", "endpoint", baseURL)
		}
		logger.Info("llm: OpenAI-compatible provider selected")
		return providers.NewOpenAIProvider(apiKey, baseURL, tracker)
	}
	logger.Warn("llm: OPENROUTER_API_KEY not set; falling back to local provider")
	return providers.NewLocalProvider()
}

// Package cli implements the assistant command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/zuru-melon/assistant/internal/agent"
	"github.com/zuru-melon/assistant/internal/cache"
	"github.com/zuru-melon/assistant/internal/common"
	"github.com/zuru-melon/assistant/internal/config"
	"github.com/zuru-melon/assistant/internal/knowledge"
	"github.com/zuru-melon/assistant/internal/llm"
	"github.com/zuru-melon/assistant/internal/migrate"
	"github.com/zuru-melon/assistant/internal/search"
	"github.com/zuru-melon/assistant/internal/usage"
)

// app lazily assembles the assistant's collaborators from configuration.
// Commands share one instance through the command context.
type app struct {
	cfg     config.Config
	tracker *usage.Tracker

	caches *cache.Manager
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, tracker: usage.NewTracker()}
	if cfg.CacheEnabled {
		a.caches = cache.NewManager(cfg.Store(), cfg.CacheTTL)
	}
	return a, nil
}

func (a *app) close() {
	if a.caches != nil {
		if err := a.caches.Close(); err != nil {
			common.Logger().Warn("cli: closing caches", "error", err)
		}
	}
}

func (a *app) provider() llm.Provider {
	return llm.NewProvider(a.cfg.OpenRouterAPIKey, a.cfg.OpenRouterBaseURL, a.tracker)
}

func (a *app) searchClient(provider llm.Provider) *search.Client {
	return search.New(provider, a.cfg.SearchModel, a.cfg.SerperAPIKey, a.tracker)
}

func (a *app) documents() (map[string]knowledge.Document, error) {
	return knowledge.Load(a.cfg.KnowledgeDir)
}

// namespaceCache returns the cache for a namespace, or nil when caching is
// disabled.
func (a *app) namespaceCache(namespace string) *cache.QueryCache {
	if a.caches == nil {
		return nil
	}
	return a.caches.Cache(namespace)
}

func (a *app) runner() *migrate.Runner {
	return migrate.New(migrate.Config{Store: a.cfg.Store(), Dir: a.cfg.MigrationsDir})
}

// assistantFactory builds classic assistants sharing the app's provider,
// search client, and documents. Each call gets independent history.
func (a *app) assistantFactory() (func() *agent.Assistant, error) {
	provider := a.provider()
	documents, err := a.documents()
	if err != nil {
		return nil, err
	}
	searchClient := a.searchClient(provider)
	return func() *agent.Assistant {
		return agent.NewAssistant(agent.Config{
			Provider:          provider,
			Search:            searchClient,
			Documents:         documents,
			Cache:             a.namespaceCache(cache.DefaultNamespace),
			GeneratorModel:    a.cfg.GeneratorModel,
			OrchestratorModel: a.cfg.OrchestratorModel,
		})
	}, nil
}

// NewRootCmd builds the assistant command tree.
func NewRootCmd() *cobra.Command {
	var debug bool
	root := &cobra.Command{
		Use:           "assistant",
		Short:         "Company assistant with a cached, routed answer pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				common.SetDebug(true)
			}
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newChatCmd())
	root.AddCommand(newCacheCmd())
	root.AddCommand(newDBCmd())
	root.AddCommand(newServeCmd())
	return root
}

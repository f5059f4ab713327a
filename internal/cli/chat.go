package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zuru-melon/assistant/internal/agent"
	"github.com/zuru-melon/assistant/internal/cache"
	"github.com/zuru-melon/assistant/internal/common"
	"github.com/zuru-melon/assistant/internal/knowledge"
)

// asker is the common surface of the classic and agentic assistants.
type asker interface {
	Ask(ctx context.Context, query string) (*agent.Reply, error)
	Documents() map[string]knowledge.Document
	Cache() *cache.QueryCache
}

func newChatCmd() *cobra.Command {
	var agentic bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat with the assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			assistant, err := buildAsker(a, agentic)
			if err != nil {
				return err
			}
			return chatLoop(cmd.Context(), a, assistant, agentic)
		},
	}
	cmd.Flags().BoolVar(&agentic, "agentic", false, "use the tool-calling agent instead of the routed pipeline")
	return cmd
}

func buildAsker(a *app, agentic bool) (asker, error) {
	if !agentic {
		factory, err := a.assistantFactory()
		if err != nil {
			return nil, err
		}
		return factory(), nil
	}
	documents, err := a.documents()
	if err != nil {
		return nil, err
	}
	provider := a.provider()
	return agent.NewAgenticAssistant(agent.AgenticConfig{
		APIKey:    a.cfg.OpenRouterAPIKey,
		BaseURL:   a.cfg.OpenRouterBaseURL,
		Model:     a.cfg.GeneratorModel,
		Search:    a.searchClient(provider),
		Documents: documents,
		Cache:     a.namespaceCache(agent.AgenticNamespace),
	})
}

func chatLoop(ctx context.Context, a *app, assistant asker, agentic bool) error {
	prompt := color.New(color.FgCyan, color.Bold)
	answer := color.New(color.FgGreen)
	meta := color.New(color.FgYellow)

	mode := "classic"
	if agentic {
		mode = "agentic"
	}
	fmt.Printf("Assistant ready (%s mode). Type 'quit' to exit, 'help' for commands.\n\n", mode)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		prompt.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if done, handled := handleCommand(ctx, assistant, line, meta); done {
			printUsageSummary(a, meta)
			return nil
		} else if handled {
			continue
		}

		reply, err := assistant.Ask(ctx, line)
		if err != nil {
			color.Red("error: %v", err)
			continue
		}
		answer.Println(reply.Answer)
		if reply.FromCache {
			meta.Printf("(cached answer, hit %d, stored %s)\n",
				reply.HitCount, reply.CachedAt.Format("2006-01-02 15:04"))
		} else if common.DebugEnabled() {
			meta.Printf("(action: %s)\n", reply.Action)
		}
		fmt.Println()
	}
}

// handleCommand intercepts control commands. The first return value reports
// whether the loop should exit, the second whether the line was consumed.
func handleCommand(ctx context.Context, assistant asker, line string, meta *color.Color) (bool, bool) {
	switch strings.ToLower(line) {
	case "quit", "exit":
		return true, true
	case "help":
		fmt.Println("commands: quit, exit, reset, docs, cache, cache clear, debug on, debug off")
		return false, true
	case "reset":
		if classic, ok := assistant.(*agent.Assistant); ok {
			classic.Reset()
			meta.Println("conversation history cleared")
		} else {
			meta.Println("reset is only available in classic mode")
		}
		return false, true
	case "docs":
		documents := assistant.Documents()
		names := make([]string, 0, len(documents))
		for filename := range documents {
			names = append(names, filename)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("- %s (%d bytes)\n", name, len(documents[name].Content))
		}
		return false, true
	case "cache":
		printCacheStats(ctx, assistant.Cache(), meta)
		return false, true
	case "cache clear":
		c := assistant.Cache()
		if c == nil {
			meta.Println("cache disabled")
			return false, true
		}
		deleted, err := c.Clear(ctx)
		if err != nil {
			color.Red("error: %v", err)
			return false, true
		}
		meta.Printf("cleared %d entries\n", deleted)
		return false, true
	case "debug on":
		common.SetDebug(true)
		meta.Println("debug logging on")
		return false, true
	case "debug off":
		common.SetDebug(false)
		meta.Println("debug logging off")
		return false, true
	}
	return false, false
}

func printCacheStats(ctx context.Context, c *cache.QueryCache, meta *color.Color) {
	if c == nil {
		meta.Println("cache disabled")
		return
	}
	stats, err := c.Stats(ctx)
	if err != nil {
		color.Red("error: %v", err)
		return
	}
	fmt.Printf("namespace:    %s\n", stats.Namespace)
	fmt.Printf("entries:      %d (%d valid)\n", stats.TotalEntries, stats.ValidEntries)
	fmt.Printf("total hits:   %d\n", stats.TotalHits)
	fmt.Printf("avg hits:     %.1f\n", stats.AvgHitsPerUse)
	if stats.OldestEntry != nil {
		fmt.Printf("oldest entry: %s\n", stats.OldestEntry.Format("2006-01-02 15:04"))
	}
	if stats.MostRecentUse != nil {
		fmt.Printf("last used:    %s\n", stats.MostRecentUse.Format("2006-01-02 15:04"))
	}
}

func printUsageSummary(a *app, meta *color.Color) {
	summary := a.tracker.Summarize()
	if summary.Calls == 0 {
		return
	}
	meta.Printf("session usage: %d calls, %d tokens in, %d tokens out, $%.4f\n",
		summary.Calls, summary.InputTokens, summary.OutputTokens, summary.Cost)
}

package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zuru-melon/assistant/internal/cache"
)

func newCacheCmd() *cobra.Command {
	var namespace string
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the response cache",
	}
	cmd.PersistentFlags().StringVar(&namespace, "namespace", cache.DefaultNamespace, "cache namespace")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics for a namespace",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			c := a.namespaceCache(namespace)
			if c == nil {
				return fmt.Errorf("cache disabled (CACHE_ENABLED=false)")
			}
			printCacheStats(cmd.Context(), c, color.New(color.FgYellow))
			return nil
		},
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry in a namespace",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			c := a.namespaceCache(namespace)
			if c == nil {
				return fmt.Errorf("cache disabled (CACHE_ENABLED=false)")
			}
			deleted, err := c.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("cleared %d entries from %s\n", deleted, namespace)
			return nil
		},
	}

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete entries older than the TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			c := a.namespaceCache(namespace)
			if c == nil {
				return fmt.Errorf("cache disabled (CACHE_ENABLED=false)")
			}
			deleted, err := c.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("purged %d expired entries from %s\n", deleted, namespace)
			return nil
		},
	}

	cmd.AddCommand(stats, clear, purge)
	return cmd
}

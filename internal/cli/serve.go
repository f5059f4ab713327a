package cli

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zuru-melon/assistant/internal/api"
	"github.com/zuru-melon/assistant/internal/common"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the assistant HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := common.Logger()
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			factory, err := a.assistantFactory()
			if err != nil {
				return err
			}
			runner := a.runner()
			defer runner.Close()

			// Bring the schema current before taking traffic.
			result, err := runner.Migrate(cmd.Context(), "")
			if err != nil {
				return fmt.Errorf("startup migrations: %w", err)
			}
			if len(result.Failed) > 0 {
				return fmt.Errorf("startup migrations halted at %s", result.Failed[0])
			}

			server := api.NewServer(api.Config{
				NewAssistant: factory,
				Caches:       a.caches,
				Runner:       runner,
				Tracker:      a.tracker,
			})

			reachable := addr
			if strings.HasPrefix(reachable, ":") {
				reachable = "localhost" + reachable
			}
			logger.Info("serve: listening", "addr", addr, "health", fmt.Sprintf("http://%s/health", reachable))
			fmt.Printf("Serving on %s\n", addr)
			return http.ListenAndServe(addr, server)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

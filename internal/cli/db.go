package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the assistant database schema",
	}

	var target string
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			runner := a.runner()
			defer runner.Close()

			result, err := runner.Migrate(cmd.Context(), target)
			if err != nil {
				return err
			}
			for _, v := range result.Applied {
				color.Green("applied  %s", v)
			}
			for _, v := range result.Skipped {
				color.Yellow("skipped  %s", v)
			}
			for _, v := range result.Failed {
				color.Red("failed   %s", v)
			}
			if len(result.Failed) > 0 {
				return fmt.Errorf("migration run halted at %s", result.Failed[0])
			}
			if len(result.Applied) == 0 && len(result.Skipped) == 0 {
				fmt.Println("database is up to date")
			}
			return nil
		},
	}
	migrateCmd.Flags().StringVar(&target, "target", "", "apply migrations up to this version (e.g. 002)")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			runner := a.runner()
			defer runner.Close()

			status, err := runner.Status(cmd.Context())
			if err != nil {
				return err
			}
			for _, v := range status.Applied {
				color.Green("applied  %s", v)
			}
			for _, v := range status.Pending {
				color.Yellow("pending  %s", v)
			}
			fmt.Printf("%d applied, %d pending\n", status.TotalApplied, status.TotalPending)
			return nil
		},
	}

	cmd.AddCommand(migrateCmd, statusCmd)
	return cmd
}

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/genetrans/genetrans/pkg/orchestrator"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newHistoryCommand(opts *GlobalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent checkpoint conversions from the database ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return errors.New("--limit must be positive")
			}

			orch, err := orchestrator.NewOrchestrator(cmd.Context(), orchestrator.Options{
				ConfigPath: opts.ConfigFile,
				Verbose:    opts.Verbose,
				LogOutput:  cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			defer orch.Close()

			db := orch.Database()
			if db == nil || !db.IsEnabled() {
				return errors.New("database ledger is not enabled, set database.enabled in the config")
			}

			records, err := db.RecentConversions(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, " %-10s %-40s %-40s\n", "Status", "Input", "Output")
			fmt.Fprintln(out, color.CyanString(strings.Repeat("─", 92)))
			for _, rec := range records {
				fmt.Fprintf(out, " %-10s %-40s %-40s\n", rec.Status, rec.InputPath, rec.OutputPath)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of conversions to show")
	return cmd
}

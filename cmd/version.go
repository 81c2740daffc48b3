package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildDate = "2026-10-14"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Current Version:    %s", Version))
			fmt.Fprintln(cmd.OutOrStdout(), color.HiBlackString("Build Date:         %s", BuildDate))
		},
	}
}

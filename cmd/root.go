package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/genetrans/genetrans/pkg/config"
	"github.com/genetrans/genetrans/pkg/convert"
	"github.com/genetrans/genetrans/pkg/database"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// GlobalOptions holds the flags shared by every command.
type GlobalOptions struct {
	ConfigFile string
	Verbose    bool

	// merger replaces the Python merger; set by tests.
	merger convert.Merger
}

func NewRootCommand(opts *GlobalOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "genetrans",
		Short: "codon transformer training utilities",
		Long: `genetrans manages training settings for the codon transformer and
consolidates sharded DeepSpeed checkpoints into single .pt files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.Verbose {
				setDebugLogFunctions()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file path (default: genetrans.yaml, config/genetrans.yaml or the user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose/debug output")

	rootCmd.AddCommand(
		newDeepspeedToPtCommand(opts),
		newSettingsCommand(),
		newHistoryCommand(opts),
		newVersionCommand(),
	)

	return rootCmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand(&GlobalOptions{}).ExecuteContext(ctx); err != nil {
		stop()
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func DebugLog(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[DBG] "+format+"\n", args...)
}

func setDebugLogFunctions() {
	config.DebugLog = DebugLog
	convert.DebugLog = DebugLog
	database.DebugLog = DebugLog
}

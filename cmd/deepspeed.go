package cmd

import (
	"fmt"

	"github.com/genetrans/genetrans/pkg/orchestrator"

	"github.com/spf13/cobra"
)

func newDeepspeedToPtCommand(opts *GlobalOptions) *cobra.Command {
	var weights string

	cmd := &cobra.Command{
		Use:   "deepspeed-to-pt",
		Short: "Convert a sharded DeepSpeed checkpoint to a single .pt file",
		Long: `Convert a DeepSpeed ZeRO checkpoint into a consolidated fp32 state dict.

The output is written next to the input with the extension replaced by .pt.
A single file greatly reduces transfer size and model loading time on
multi-rank systems. The input checkpoint is left untouched.

-d/--deepspeed_weights is the only flag of this command; the global
-c/--config and -v/--verbose flags of genetrans also apply.`,
		Example: `  genetrans deepspeed-to-pt -d runs/codon/last.ckpt`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := orchestrator.NewOrchestrator(cmd.Context(), orchestrator.Options{
				ConfigPath: opts.ConfigFile,
				Verbose:    opts.Verbose,
				LogOutput:  cmd.ErrOrStderr(),
				Merger:     opts.merger,
			})
			if err != nil {
				return err
			}
			defer orch.Close()

			result, err := orch.ConvertCheckpoint(cmd.Context(), weights)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.OutputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&weights, "deepspeed_weights", "d", "", "path to the sharded DeepSpeed checkpoint")
	cmd.MarkFlagRequired("deepspeed_weights")

	return cmd
}

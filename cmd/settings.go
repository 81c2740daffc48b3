package cmd

import (
	"fmt"
	"os"

	"github.com/genetrans/genetrans/pkg/settings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const defaultTemplatePath = "settings_template.yaml"

func newSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Create and validate training settings files",
	}

	cmd.AddCommand(newSettingsTemplateCommand(), newSettingsCheckCommand())
	return cmd
}

func newSettingsTemplateCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write a settings file holding every default",
		Example: `  genetrans settings template
  genetrans settings template -o run.yaml
  genetrans settings template -o -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "-" {
				return settings.Default().Encode(cmd.OutOrStdout())
			}
			if err := settings.Default().Dump(output); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), color.GreenString("[INF] Settings template written to %s", output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", defaultTemplatePath, "file to write, - for stdout")
	return cmd
}

func newSettingsCheckCommand() *cobra.Command {
	var noEnv bool

	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Validate a settings file and print the effective settings",
		Long: `Validate a settings file against the schema and print the effective
settings. Unknown keys, mistyped values and nulls are errors. Unless
--no-env is given, GENETRANS_<KEY> environment variables override defaults
and are in turn overridden by the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				s   settings.ModelSettings
				err error
			)
			if noEnv {
				s, err = settings.Load(args[0])
			} else {
				s, err = settings.Resolve(args[0], os.LookupEnv)
			}
			if err != nil {
				return err
			}
			return s.Encode(cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&noEnv, "no-env", false, "ignore GENETRANS_* environment overrides")
	return cmd
}

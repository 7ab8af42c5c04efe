package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// inspectCmd represents the inspect command.
var inspectCmd = newInspectCmd()

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [paths...]",
		Short: "Report transformation sites without modifying files",
		Long:  inspectLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := newWorkflow().Inspect(
				cmd.Context(), parsePaths(args), viper.GetBool(recursiveConfigKey))
			if err != nil {
				return err
			}

			return ui.DisplaySites(cmd.Context(), summaries)
		},
	}
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

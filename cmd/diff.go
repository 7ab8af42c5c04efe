package cmd

import (
	"github.com/spf13/cobra"

	m "github.com/BillChirico/lua-obfuscator/internal/model"
)

// diffCmd represents the diff command.
var diffCmd = newDiffCmd()

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <file>",
		Short: "Show what obfuscation would change in one file",
		Long: `Obfuscate a single file in memory and display a unified diff against the
original source. Nothing is written to disk.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			original, obfuscated, err := newWorkflow().Diff(
				cmd.Context(), m.Path(args[0]), optionsFromConfig())
			if err != nil {
				return err
			}

			return ui.DisplayDiff(cmd.Context(), args[0], original, obfuscated)
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

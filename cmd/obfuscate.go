package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/BillChirico/lua-obfuscator/internal/domain"
	m "github.com/BillChirico/lua-obfuscator/internal/model"
)

var (
	levelFlag      int
	seedFlag       int64
	stringAlgoFlag string
	parallelFlag   int

	mangleFlag    bool
	stringsFlag   bool
	numbersFlag   bool
	deadCodeFlag  bool
	opaqueFlag    bool
	flattenFlag   bool
	antiDebugFlag bool
	minifyFlag    bool
	lineJunkFlag  bool
)

// obfuscateCmd represents the obfuscate command.
var obfuscateCmd = newObfuscateCmd()

func newObfuscateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "obfuscate [paths...]",
		Short: "Obfuscate Lua scripts",
		Long:  obfuscateLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && args[0] == "-" {
				return obfuscateStdin(cmd)
			}

			reports, err := newWorkflow().Obfuscate(cmd.Context(), domain.BatchArgs{
				Paths:     parsePaths(args),
				Output:    m.Path(viper.GetString(outputConfigKey)),
				Reports:   m.Path(viper.GetString(reportsConfigKey)),
				Recursive: viper.GetBool(recursiveConfigKey),
				Threads:   uint(viper.GetInt(parallelConfigKey)),
				Options:   optionsFromConfig(),
			})
			if err != nil {
				return err
			}

			if err := ui.DisplayReports(cmd.Context(), reports); err != nil {
				return err
			}

			if failed := countFailed(reports); failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(reports))
			}

			return nil
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(obfuscateCmd)
}

// configureObfuscateFlags registers the pass-selection flags. They live on
// the root's persistent set so obfuscate and diff share one flag instance
// per config key; viper tolerates only a single binding per key.
//
//nolint:funlen // One line per flag; splitting would hide the flag surface.
func configureObfuscateFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.IntVarP(&levelFlag, levelFlagName, "l",
		viper.GetInt(levelConfigKey), "protection level 0-100 controlling per-site apply probability")
	bindFlagToConfig(flags.Lookup(levelFlagName), levelConfigKey)

	flags.Int64Var(&seedFlag, seedFlagName,
		viper.GetInt64(seedConfigKey), "random seed for reproducible output (0 = non-deterministic)")
	bindFlagToConfig(flags.Lookup(seedFlagName), seedConfigKey)

	flags.StringVar(&stringAlgoFlag, stringAlgoFlagName,
		viper.GetString(stringAlgoConfigKey), "string encryption algorithm: none, xor, base64, frequency, chunked")
	bindFlagToConfig(flags.Lookup(stringAlgoFlagName), stringAlgoConfigKey)

	flags.IntVarP(&parallelFlag, parallelFlagName, "p",
		viper.GetInt(parallelConfigKey), "number of files to process in parallel")
	bindFlagToConfig(flags.Lookup(parallelFlagName), parallelConfigKey)

	flags.BoolVar(&mangleFlag, mangleFlagName,
		viper.GetBool(mangleConfigKey), "rename local variables and parameters")
	bindFlagToConfig(flags.Lookup(mangleFlagName), mangleConfigKey)

	flags.BoolVar(&stringsFlag, stringsFlagName,
		viper.GetBool(stringsConfigKey), "encrypt string literals")
	bindFlagToConfig(flags.Lookup(stringsFlagName), stringsConfigKey)

	flags.BoolVar(&numbersFlag, numbersFlagName,
		viper.GetBool(numbersConfigKey), "encode numeric literals as arithmetic expressions")
	bindFlagToConfig(flags.Lookup(numbersFlagName), numbersConfigKey)

	flags.BoolVar(&deadCodeFlag, deadCodeFlagName,
		viper.GetBool(deadCodeConfigKey), "inject unreachable filler statements")
	bindFlagToConfig(flags.Lookup(deadCodeFlagName), deadCodeConfigKey)

	flags.BoolVar(&opaqueFlag, opaqueFlagName,
		viper.GetBool(opaqueConfigKey), "wrap conditions in opaque predicates")
	bindFlagToConfig(flags.Lookup(opaqueFlagName), opaqueConfigKey)

	flags.BoolVar(&flattenFlag, flattenFlagName,
		viper.GetBool(flattenConfigKey), "flatten control flow into a state machine")
	bindFlagToConfig(flags.Lookup(flattenFlagName), flattenConfigKey)

	flags.BoolVar(&antiDebugFlag, antiDebugFlagName,
		viper.GetBool(antiDebugConfigKey), "insert anti-introspection probes")
	bindFlagToConfig(flags.Lookup(antiDebugFlagName), antiDebugConfigKey)

	flags.BoolVar(&minifyFlag, minifyFlagName,
		viper.GetBool(minifyConfigKey), "emit single-line output")
	bindFlagToConfig(flags.Lookup(minifyFlagName), minifyConfigKey)

	flags.BoolVar(&lineJunkFlag, lineJunkFlagName,
		viper.GetBool(lineJunkConfigKey), "additionally inject filler lines into rendered output")
	bindFlagToConfig(flags.Lookup(lineJunkFlagName), lineJunkConfigKey)
}

// obfuscateStdin runs the pipeline on standard input and writes the result
// to standard output, for use in shell pipelines.
func obfuscateStdin(cmd *cobra.Command) error {
	source, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	result := newPipeline().Obfuscate(cmd.Context(), "stdin", string(source), optionsFromConfig())
	if !result.Success {
		return result.Err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), result.Output)

	return err
}

func countFailed(reports []m.FileReport) int {
	failed := 0

	for _, report := range reports {
		if !report.Success {
			failed++
		}
	}

	return failed
}

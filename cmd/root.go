// Package cmd provides the root command and CLI setup for the obfuscator.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/BillChirico/lua-obfuscator/internal/adapter"
	"github.com/BillChirico/lua-obfuscator/internal/controller"
	"github.com/BillChirico/lua-obfuscator/internal/domain"
	m "github.com/BillChirico/lua-obfuscator/internal/model"
)

var grammarAdapter adapter.GrammarAdapter
var fsAdapter adapter.SourceFSAdapter
var reportStore adapter.ReportStore
var ui controller.UI

// outputDirFlag mirrors the input tree under this directory when set.
var outputDirFlag string

// reportsPathFlag persists per-file reports as YAML when set.
var reportsPathFlag string

// recursiveFlag descends into subdirectories when scanning paths.
var recursiveFlag bool

var logFileFlag string
var verboseFlag bool

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies. The pipeline itself is built per
	// command run, after the seed flag has been resolved.
	ui = controller.NewUI(rootCmd, controller.IsTTY())
	grammarAdapter = adapter.NewLuaGrammarAdapter()
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	reportStore = adapter.NewYAMLReportStore()
}

const pathArgumentsHelp = `Accepts files and directories:
  - script.lua          a single script
  - ./scripts           every .lua file in a directory
  - ./scripts -r        descend into subdirectories too`

const rootLongDescription = `luaobf is a source-to-source obfuscator for Lua scripts. It parses each
script, applies the configured transformation passes over the syntax tree
and emits an equivalent but much harder to read program.

` + pathArgumentsHelp

const obfuscateLongDescription = `Obfuscate the given Lua files and write the transformed sources.
Pass "-" as the only path to read from stdin and write to stdout.

` + pathArgumentsHelp

const inspectLongDescription = `Parse the given Lua files and report how many sites each transformation
pass would consider, without modifying anything.

` + pathArgumentsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "luaobf",
		Short: "Lua source obfuscator",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(logFileFlag, verboseFlag)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(
		&outputDirFlag, outputFlagName, "o",
		viper.GetString(outputConfigKey),
		"output directory (default: write <name>.obf.lua beside each input)",
	)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputConfigKey)

	cmd.PersistentFlags().StringVar(
		&reportsPathFlag, reportsFlagName,
		viper.GetString(reportsConfigKey),
		"write per-file YAML reports to this path",
	)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(reportsFlagName), reportsConfigKey)

	cmd.PersistentFlags().BoolVarP(
		&recursiveFlag, recursiveFlagName, "r",
		viper.GetBool(recursiveConfigKey),
		"descend into subdirectories when scanning paths",
	)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(recursiveFlagName), recursiveConfigKey)

	cmd.PersistentFlags().StringVar(&logFileFlag, "log", "", "log file path")
	cmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")

	configureObfuscateFlags(cmd)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// newPipeline assembles a pipeline for one command run, after flags have
// been parsed so the seed is known.
func newPipeline() domain.Pipeline {
	return domain.NewPipeline(grammarAdapter, domain.SeededRandFactory(viper.GetInt64(seedConfigKey)))
}

func newWorkflow() domain.Workflow {
	return domain.NewWorkflow(fsAdapter, reportStore, grammarAdapter, newPipeline())
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zheng/ctb/internal/config"
	"github.com/zheng/ctb/internal/graph"
	"github.com/zheng/ctb/internal/logging"
)

// Global flags
var (
	ConfigPath  string
	TracePath   string
	LogLevel    string
	EntryLevel  int
	StrictEntry bool
)

// cfg is resolved before any subcommand runs
var cfg = config.Default()

// NewRootCommand returns the ctb command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ctb",
		Short: "Call tree browser for GraalVM native-image call tree traces",
		Long: `ctb parses a native-image call tree trace into a call graph and lets you
browse it from the command line, a web UI or an MCP client.`,
		SilenceErrors: true,
	}
	RegisterCommands(rootCmd)
	return rootCmd
}

// RegisterCommands adds the global flags and all subcommands to the root command
func RegisterCommands(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ConfigPath, "config", "c", "ctb.yaml", "config file (YAML, optional)")
	flags.StringVarP(&TracePath, "file", "f", "", "call tree trace file")
	flags.StringVar(&LogLevel, "log-level", "", "log level (debug/info/warn/error)")
	flags.IntVar(&EntryLevel, "entry-level", graph.DefaultLoadOptions().EntryLevel, "indentation level of entry lines (-1 = detect)")
	flags.BoolVar(&StrictEntry, "strict-entry", false, "skip depth-0 lines whose call type is not \"entry\"")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return resolveConfig(cmd)
	}
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(classesCmd())
	rootCmd.AddCommand(classCmd())
	rootCmd.AddCommand(entrypointsCmd())
	rootCmd.AddCommand(methodCmd())
	rootCmd.AddCommand(upstreamCmd())
	rootCmd.AddCommand(downstreamCmd())
	rootCmd.AddCommand(impactCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(exportCmd())
}

// resolveConfig layers the config file, environment and explicit flags.
func resolveConfig(cmd *cobra.Command) error {
	loaded, err := config.Load(ConfigPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("file") {
		loaded.Trace.File = TracePath
	}
	if flags.Changed("log-level") {
		loaded.Log.Level = LogLevel
	}
	if flags.Changed("entry-level") {
		loaded.Trace.EntryLevel = EntryLevel
	}
	if flags.Changed("strict-entry") {
		loaded.Trace.StrictEntry = StrictEntry
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	cfg = loaded
	logging.Setup(cfg.Log)
	return nil
}

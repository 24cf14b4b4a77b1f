package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/teranos/lanes/am"
	"github.com/teranos/lanes/cmd/lanes/commands"
	"github.com/teranos/lanes/logger"
	"github.com/teranos/lanes/sym"
)

var rootCmd = &cobra.Command{
	Use:   "lanes",
	Short: sym.Pulse + " lanes - asynchronous command chains",
	Long: sym.Pulse + ` lanes - asynchronous command-chain orchestration

Runs chains of commands on serial lanes, priority classes and the main loop,
with pause, resume, interrupt and cancel semantics.

Available commands:
  am      - Manage lanes configuration
  chain   - Run a chain described in a TOML file
  demo    - Run a built-in chain with one transient failure
  version - Show build information

Examples:
  lanes am show                 # Show current configuration
  lanes chain run build.toml    # Run a chain file
  lanes demo -vv                # Watch the demo with debug logging`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonOutput, _ := cmd.Flags().GetBool("json-logs")

		// A broken config file is reported by the command that needs it.
		if cfg, err := am.Load(); err == nil {
			if cfg.Log.Theme != "" {
				logger.SetTheme(cfg.Log.Theme)
			}
			jsonOutput = jsonOutput || cfg.Log.JSON
		}
		if err := logger.Initialize(jsonOutput); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.SetVerbosity(verbosity)
		logger.Debugw("Logger initialized", "level", logger.LevelName(verbosity), "json", jsonOutput)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.ChainCmd)
	rootCmd.AddCommand(commands.DemoCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

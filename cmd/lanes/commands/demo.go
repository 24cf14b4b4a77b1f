package commands

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/teranos/lanes/pulse/chain"
	"github.com/teranos/lanes/sym"
)

// DemoCmd runs a built-in chain with one transient failure and the trace on.
var DemoCmd = &cobra.Command{
	Use:   "demo",
	Short: sym.Pulse + " Run a three-step demo chain",
	Long: sym.Pulse + ` demo - Run a three-step demo chain

The second step fails once; the chain stops, is resumed, and finishes.
The transition trace is written to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChain(cmd.Context(), demoChain(), chainOptions{
			trace:   true,
			timeout: demoTimeout,
			retries: 1,
		})
	},
}

var demoTimeout time.Duration

func init() {
	DemoCmd.Flags().DurationVar(&demoTimeout, "timeout", 30*time.Second, "Give up waiting after this long")
}

func demoChain() *chain.Chain {
	return &chain.Chain{
		Name: "demo",
		Steps: []chain.Step{
			{Name: "fetch", Lane: "net", Priority: "high", SleepMS: 50},
			{Name: "transform", Priority: "background", SleepMS: 80, FailTimes: 1},
			{Name: "store", Lane: "db", DelayMS: 20, SleepMS: 30},
		},
	}
}

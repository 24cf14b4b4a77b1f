package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/teranos/lanes/am"
	"github.com/teranos/lanes/logger"
	"github.com/teranos/lanes/pulse"
	"github.com/teranos/lanes/pulse/async"
	"github.com/teranos/lanes/pulse/chain"
	"github.com/teranos/lanes/sym"
)

// ChainCmd groups chain commands
var ChainCmd = &cobra.Command{
	Use:   "chain",
	Short: sym.Pulse + " Run command chains",
	Long: sym.Pulse + ` chain - Run command chains described in TOML

Each [[step]] names a lane or priority class, an optional delay, how long it
works (sleep_ms) and how many times it fails before succeeding (fail_times).

Examples:
  lanes chain run nightly.toml
  lanes chain run nightly.toml --trace --retries 2 --timeout 1m`,
}

var chainRunCmd = &cobra.Command{
	Use:   "run <file.toml>",
	Short: "Run a chain file as one job",
	Args:  cobra.ExactArgs(1),
	RunE:  runChainRun,
}

var (
	chainTrace   bool
	chainTimeout time.Duration
	chainRetries int
)

func init() {
	chainRunCmd.Flags().BoolVar(&chainTrace, "trace", false, "Write the transition trace to stderr")
	chainRunCmd.Flags().DurationVar(&chainTimeout, "timeout", 30*time.Second, "Give up waiting after this long")
	chainRunCmd.Flags().IntVar(&chainRetries, "retries", 0, "Resume a failed chain up to this many times")

	ChainCmd.AddCommand(chainRunCmd)
}

func runChainRun(cmd *cobra.Command, args []string) error {
	c, err := chain.LoadFile(args[0])
	if err != nil {
		return err
	}
	verbosity, _ := cmd.Flags().GetCount("verbose")
	return runChain(cmd.Context(), c, chainOptions{
		trace:   chainTrace || logger.ShouldLogTrace(verbosity),
		timeout: chainTimeout,
		retries: chainRetries,
	})
}

type chainOptions struct {
	trace   bool
	timeout time.Duration
	retries int
}

// runChain builds a runtime from the loaded configuration, runs c and prints
// the outcome of every step.
func runChain(ctx context.Context, c *chain.Chain, opts chainOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	rt, err := async.NewRuntimeFromConfig(cfg, async.WithLogger(logger.ComponentLogger("pulse")))
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Pulse.ShutdownTimeout()+time.Second)
		defer cancel()
		if err := rt.Close(closeCtx); err != nil {
			logger.Warnw("Runtime did not shut down cleanly", logger.FieldError, err)
		}
	}()

	if opts.trace {
		rt.EnableTrace(os.Stderr)
	}
	if w := watchConfig(rt); w != nil {
		defer func() {
			am.SetGlobalWatcher(nil)
			_ = w.Stop()
		}()
	}
	if rt.Provider().ExternalMainLoop() {
		mainCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() { _ = rt.RunMain(mainCtx) }()
	}

	title := c.Name
	if title == "" {
		title = "chain"
	}
	pterm.DefaultSection.Printf("%s %s (%d steps)", sym.Pulse, title, len(c.Steps))
	logger.PulseInfow("Running chain", "chain", title, logger.FieldCount, len(c.Steps))

	run, err := chain.Start(rt, c, async.WithObserver(pulse.ObserveProgress(&termEmitter{total: len(c.Steps)})))
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()
	runErr := run.Wait(waitCtx, opts.retries)
	if runErr != nil {
		logger.PulseWarnw("Chain did not finish", "chain", title, logger.FieldError, runErr)
		// let the step in flight observe cancellation before the table is drawn
		run.Job().Cancel()
	}

	if err := renderResults(run.Results()); err != nil {
		return err
	}
	return runErr
}

func renderResults(results []chain.StepResult) error {
	data := pterm.TableData{{"Step", "Runs on", "Attempts", "Time", "Result"}}
	for _, r := range results {
		result := pterm.FgGray.Sprint("not run")
		switch {
		case r.Done:
			result = pterm.FgGreen.Sprint("ok")
		case r.Err != nil:
			result = pterm.FgRed.Sprint(r.Err.Error())
		}
		data = append(data, []string{
			r.Name,
			sym.Glyph(r.Kind.String()) + " " + r.Selector,
			strconv.Itoa(r.Attempts),
			r.Duration.Round(time.Millisecond).String(),
			result,
		})
	}
	pterm.Println()
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// watchConfig reapplies the most specific existing config file to rt when
// it changes, so `lanes am trace on` takes effect on a running chain.
func watchConfig(rt *async.Runtime) *am.ConfigWatcher {
	paths := am.ConfigPaths()
	for i := len(paths) - 1; i >= 0; i-- {
		if _, err := os.Stat(paths[i]); err != nil {
			continue
		}
		w, err := am.NewConfigWatcher(paths[i])
		if err != nil {
			logger.Debugw("Config watcher unavailable", "path", paths[i], logger.FieldError, err)
			return nil
		}
		w.OnReload(rt.ApplyConfig)
		w.Start()
		am.SetGlobalWatcher(w)
		return w
	}
	return nil
}

package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/teranos/lanes/am"
	"github.com/teranos/lanes/pulse/lane"
	"github.com/teranos/lanes/sym"
	"gopkg.in/yaml.v3"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: sym.AM + " Manage lanes configuration",
	Long: sym.AM + ` am - Manage lanes configuration

Configuration sources (in order of precedence):
1. Environment variables (LANES_* prefix)
2. Project config (./lanes.toml, searched up from the working directory)
3. User config (~/.lanes/lanes.toml)
4. Default values

Examples:
  lanes am show                    # Show current configuration
  lanes am show --format json      # Show configuration in JSON format
  lanes am lane add io --priority low
  lanes am trace on
  lanes am validate                # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runAmShow,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show which configuration files are consulted",
	RunE:  runAmWhere,
}

var amLaneCmd = &cobra.Command{
	Use:   "lane",
	Short: sym.Tagged + " Declare or remove named lanes",
}

var amLaneAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Declare a named serial lane",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmLaneAdd,
}

var amLaneRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a declared lane",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmLaneRemove,
}

var amTraceCmd = &cobra.Command{
	Use:       "trace <on|off>",
	Short:     "Toggle the transition trace",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE:      runAmTrace,
}

var (
	configFormat string
	configPath   string
	lanePriority string
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	AmCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file to edit (default: project lanes.toml)")
	amLaneAddCmd.Flags().StringVar(&lanePriority, "priority", "default", "Priority class: default, high, low, background")

	amLaneCmd.AddCommand(amLaneAddCmd)
	amLaneCmd.AddCommand(amLaneRemoveCmd)

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
	AmCmd.AddCommand(amLaneCmd)
	AmCmd.AddCommand(amTraceCmd)
}

func writePath() string {
	if configPath != "" {
		return configPath
	}
	return am.DefaultWritePath()
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Println(string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Printf("# lanes configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		fmt.Printf("# lanes configuration\n%s", string(data))

	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}

	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	pterm.Success.Println("Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	fmt.Println("Configuration cascade (later overrides earlier):")
	fmt.Println("  1. [DEFAULT]  Built-in defaults")
	fmt.Println("  2. [USER]     ~/.lanes/lanes.toml")
	fmt.Println("  3. [PROJECT]  ./lanes.toml (searches up directories)")
	fmt.Println("  4. [ENV]      LANES_* environment variables")
	fmt.Println()

	data := pterm.TableData{{"Path", "Status"}}
	for _, p := range am.ConfigPaths() {
		status := pterm.FgGreen.Sprint("loaded")
		if _, err := os.Stat(p); err != nil {
			status = pterm.FgGray.Sprint("missing")
		}
		data = append(data, []string{p, status})
	}
	if len(data) == 1 {
		pterm.Info.Println("No configuration files found, using defaults")
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func runAmLaneAdd(cmd *cobra.Command, args []string) error {
	p, err := lane.ParsePriority(lanePriority)
	if err != nil {
		return err
	}
	path := writePath()
	if err := am.SaveLane(path, am.LaneConfig{Name: args[0], Priority: p.String()}); err != nil {
		return fmt.Errorf("failed to add lane: %w", err)
	}
	pterm.Success.Printf("%s Lane %q (%s) declared in %s\n", sym.Tagged, args[0], p, path)
	return nil
}

func runAmLaneRemove(cmd *cobra.Command, args []string) error {
	path := writePath()
	removed, err := am.DeleteLane(path, args[0])
	if err != nil {
		return fmt.Errorf("failed to remove lane: %w", err)
	}
	if !removed {
		pterm.Warning.Printf("Lane %q is not declared in %s\n", args[0], path)
		return nil
	}
	pterm.Success.Printf("Lane %q removed from %s\n", args[0], path)
	return nil
}

func runAmTrace(cmd *cobra.Command, args []string) error {
	var enabled bool
	switch args[0] {
	case "on":
		enabled = true
	case "off":
	default:
		return fmt.Errorf("expected on or off, got %q", args[0])
	}

	path := writePath()
	if err := am.SetTraceEnabled(path, enabled); err != nil {
		return fmt.Errorf("failed to update trace setting: %w", err)
	}
	pterm.Success.Printf("Trace %s in %s\n", args[0], path)
	return nil
}

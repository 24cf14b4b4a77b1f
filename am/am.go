// Package am loads and validates lanes configuration ("I am").
//
// Configuration is TOML read through viper. Sources, lowest precedence first:
// built-in defaults, ~/.lanes/lanes.toml, the nearest lanes.toml found by
// walking up from the working directory, then LANES_* environment variables.
package am

import "time"

// Config represents the lanes configuration
type Config struct {
	Pulse PulseConfig  `mapstructure:"pulse" toml:"pulse" json:"pulse" yaml:"pulse"`
	Trace TraceConfig  `mapstructure:"trace" toml:"trace" json:"trace" yaml:"trace"`
	Log   LogConfig    `mapstructure:"log" toml:"log" json:"log" yaml:"log"`
	Lanes []LaneConfig `mapstructure:"lanes" toml:"lanes" json:"lanes" yaml:"lanes"`
}

// PulseConfig configures the runtime's execution contexts
type PulseConfig struct {
	// ExternalMainLoop leaves the main lane for the embedding program to drive
	ExternalMainLoop bool `mapstructure:"external_main_loop" toml:"external_main_loop" json:"external_main_loop" yaml:"external_main_loop"`

	// ShutdownTimeoutSeconds bounds Runtime.Close when the caller gives no deadline (0 = wait indefinitely)
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" toml:"shutdown_timeout_seconds" json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
}

// ShutdownTimeout returns ShutdownTimeoutSeconds as a duration.
func (p PulseConfig) ShutdownTimeout() time.Duration {
	return time.Duration(p.ShutdownTimeoutSeconds) * time.Second
}

// TraceConfig configures the diagnostic transition trace
type TraceConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled" json:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" toml:"path" json:"path" yaml:"path"` // "" = stderr
}

// LogConfig configures console logging
type LogConfig struct {
	Theme string `mapstructure:"theme" toml:"theme" json:"theme" yaml:"theme"` // everforest, gruvbox
	JSON  bool   `mapstructure:"json" toml:"json" json:"json" yaml:"json"`
}

// LaneConfig declares a named serial lane registered at startup
type LaneConfig struct {
	Name     string `mapstructure:"name" toml:"name" json:"name" yaml:"name"`
	Priority string `mapstructure:"priority" toml:"priority" json:"priority" yaml:"priority"` // high, default, low, background
}

// File and directory names
const (
	ProjectConfigName = "lanes.toml"
	UserConfigDir     = ".lanes"
	EnvPrefix         = "LANES"

	DefaultDirPermissions  = 0o755
	DefaultFilePermissions = 0o644
)

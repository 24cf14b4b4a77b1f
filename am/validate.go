package am

import (
	"github.com/teranos/lanes/errors"
	"github.com/teranos/lanes/pulse/lane"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Shutdown timeout: 0 = wait indefinitely, negative = invalid
	if c.Pulse.ShutdownTimeoutSeconds < 0 {
		return errors.Newf("pulse.shutdown_timeout_seconds must be >= 0, got %d", c.Pulse.ShutdownTimeoutSeconds)
	}

	switch c.Log.Theme {
	case "", "everforest", "gruvbox":
	default:
		return errors.Newf("log.theme must be everforest or gruvbox, got %q", c.Log.Theme)
	}

	seen := make(map[string]bool, len(c.Lanes))
	for i, l := range c.Lanes {
		if l.Name == "" {
			return errors.Newf("lanes[%d].name cannot be empty", i)
		}
		if l.Name == lane.MainLaneName || l.Name == lane.CompletionLaneName {
			return errors.WithHintf(
				errors.Newf("lanes[%d].name %q is reserved", i, l.Name),
				"%q and %q belong to the runtime", lane.MainLaneName, lane.CompletionLaneName)
		}
		if seen[l.Name] {
			return errors.Newf("lanes[%d].name %q is declared twice", i, l.Name)
		}
		seen[l.Name] = true

		if _, err := lane.ParsePriority(l.Priority); err != nil {
			return errors.Wrapf(err, "lanes[%d] (%s)", i, l.Name)
		}
	}

	return nil
}

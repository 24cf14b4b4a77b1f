// Package chain loads command chains from TOML files and runs them as jobs.
//
// A chain file lists steps in order:
//
//	name = "nightly"
//
//	[[step]]
//	name = "fetch"
//	lane = "net"
//	priority = "high"
//
//	[[step]]
//	name = "index"
//	priority = "background"
//	sleep_ms = 200
//	fail_times = 1
//
// A step with a lane runs on that named serial lane (registered on demand
// with the step's priority; "main" selects the main loop). Without a lane it
// runs in the priority class. fail_times makes the first attempts fail, which
// is how the demo exercises resume.
package chain

import (
	"io"

	"github.com/BurntSushi/toml"
	"github.com/teranos/lanes/errors"
	"github.com/teranos/lanes/pulse/lane"
)

// Chain is a decoded chain file.
type Chain struct {
	Name  string `toml:"name"`
	Steps []Step `toml:"step"`
}

// Step is one [[step]] entry.
type Step struct {
	Name      string `toml:"name"`
	Lane      string `toml:"lane"`
	Priority  string `toml:"priority"`
	DelayMS   int    `toml:"delay_ms"`
	SleepMS   int    `toml:"sleep_ms"`
	FailTimes int    `toml:"fail_times"`
}

// LoadFile decodes and validates the chain file at path.
func LoadFile(path string) (*Chain, error) {
	var c Chain
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode chain file %s", path)
	}
	return finish(&c, md)
}

// Decode reads a chain from r.
func Decode(r io.Reader) (*Chain, error) {
	var c Chain
	md, err := toml.NewDecoder(r).Decode(&c)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode chain")
	}
	return finish(&c, md)
}

func finish(c *Chain, md toml.MetaData) (*Chain, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.WithHint(
			errors.Newf("unknown key %q in chain", undecoded[0].String()),
			"step keys are name, lane, priority, delay_ms, sleep_ms and fail_times")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that every step is named and schedulable.
func (c *Chain) Validate() error {
	if len(c.Steps) == 0 {
		return errors.New("chain has no steps")
	}
	seen := make(map[string]bool, len(c.Steps))
	for i, s := range c.Steps {
		if s.Name == "" {
			return errors.Newf("step %d has no name", i+1)
		}
		if seen[s.Name] {
			return errors.Newf("duplicate step name %q", s.Name)
		}
		seen[s.Name] = true

		if _, err := lane.ParsePriority(s.Priority); err != nil {
			return errors.Wrapf(err, "step %q", s.Name)
		}
		if s.DelayMS < 0 || s.SleepMS < 0 || s.FailTimes < 0 {
			return errors.Newf("step %q: delay_ms, sleep_ms and fail_times must not be negative", s.Name)
		}
		if s.Lane == lane.CompletionLaneName {
			return errors.WithHintf(errors.Newf("step %q: lane %q is reserved", s.Name, s.Lane),
				"pick another lane name")
		}
	}
	return nil
}

// Selector returns where the step runs.
func (s Step) Selector() lane.Selector {
	p, _ := lane.ParsePriority(s.Priority)
	switch s.Lane {
	case "":
		return lane.Class(p)
	case lane.MainLaneName:
		return lane.Main()
	default:
		return lane.Tagged(s.Lane)
	}
}

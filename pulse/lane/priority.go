package lane

import (
	"strings"

	"github.com/teranos/lanes/errors"
)

// Priority is a worker-pool priority class. Classes are scheduling metadata;
// work in a higher class never preempts work already running.
type Priority int

const (
	Default Priority = iota
	High
	Low
	Background

	numPriorities = iota
)

func (p Priority) String() string {
	switch p {
	case High:
		return "high"
	case Default:
		return "default"
	case Low:
		return "low"
	case Background:
		return "background"
	default:
		return "unknown"
	}
}

// ParsePriority maps a class name to its Priority. The empty string is Default.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return High, nil
	case "", "default":
		return Default, nil
	case "low":
		return Low, nil
	case "background":
		return Background, nil
	}
	return Default, errors.Newf("unknown priority %q (want high, default, low or background)", s)
}

package commands

import (
	"github.com/pterm/pterm"
	"github.com/teranos/lanes/pulse"
	"github.com/teranos/lanes/sym"
)

// termEmitter prints chain progress as pterm status lines.
type termEmitter struct {
	total int
}

var _ pulse.ProgressEmitter = (*termEmitter)(nil)

func (e *termEmitter) EmitStage(stage, message string) {
	switch stage {
	case "started":
		pterm.Info.Printfln("%s chain %s (%s)", sym.PulseOpen, stage, message)
	default:
		pterm.Warning.Printfln("%s chain %s: %s", sym.PulseClose, stage, message)
	}
}

func (e *termEmitter) EmitProgress(completed int) {
	pterm.Printfln("  %s %d/%d steps", sym.Pulse, completed, e.total)
}

func (e *termEmitter) EmitComplete(summary map[string]interface{}) {
	pterm.Success.Printfln("chain complete: %v steps", summary["completed"])
}

func (e *termEmitter) EmitError(stage string, err error) {
	pterm.Error.Printfln("%s chain %s: %v", sym.PulseClose, stage, err)
}

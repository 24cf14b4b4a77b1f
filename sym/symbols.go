// Package sym defines canonical glyphs for lanes log lines and CLI output.
// These symbols are stable across log output, trace output and the CLI.
package sym

// Pulse glyphs mark job lifecycle episodes in logs.
const (
	Pulse      = "꩜" // async jobs and command chains
	PulseOpen  = "✿" // a job entered Started
	PulseClose = "❀" // a job stopped or was ejected
)

// Lane glyphs mark execution contexts in CLI output.
const (
	Main   = "⌂" // the main loop
	Class  = "≋" // a priority class of the worker pool
	Tagged = "⇶" // a caller-registered serial lane
	AM     = "≡" // configuration
)

// byName maps the CLI-facing names to glyphs.
var byName = map[string]string{
	"pulse":       Pulse,
	"pulse-open":  PulseOpen,
	"pulse-close": PulseClose,
	"main":        Main,
	"class":       Class,
	"tagged":      Tagged,
	"am":          AM,
}

// Glyph returns the glyph registered under name, or "" when unknown.
func Glyph(name string) string {
	return byName[name]
}

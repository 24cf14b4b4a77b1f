package logger

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

// palette holds the colors of one console theme.
type palette struct {
	fg        string
	time      string
	id        string
	number    string
	glyph     string
	component []string
	warn      string
	warnBg    string
	err       string
	errBg     string
}

// Gruvbox Dark (warm, muted)
var gruvbox = palette{
	fg:        "\x1b[38;5;223m",
	time:      "\x1b[38;5;108m",
	id:        "\x1b[38;5;109m",
	number:    "\x1b[38;5;175m",
	glyph:     "\x1b[38;5;142m",
	component: []string{"\x1b[38;5;208m", "\x1b[38;5;214m"},
	warn:      "\x1b[38;5;214m",
	warnBg:    "\x1b[48;5;58m",
	err:       "\x1b[38;5;167m",
	errBg:     "\x1b[48;5;88m",
}

// Everforest Dark (forest greens)
var everforest = palette{
	fg:        "\x1b[38;5;223m",
	time:      "\x1b[38;5;107m",
	id:        "\x1b[38;5;109m",
	number:    "\x1b[38;5;108m",
	glyph:     "\x1b[38;5;108m",
	component: []string{"\x1b[38;5;108m", "\x1b[38;5;65m", "\x1b[38;5;208m"},
	warn:      "\x1b[38;5;179m",
	warnBg:    "\x1b[48;5;58m",
	err:       "\x1b[38;5;167m",
	errBg:     "\x1b[48;5;52m",
}

var currentTheme = "everforest"

// SetTheme configures the color scheme for console log output.
// Unknown names are ignored.
func SetTheme(theme string) {
	if theme == "everforest" || theme == "gruvbox" {
		currentTheme = theme
	}
}

func colors() palette {
	if currentTheme == "gruvbox" {
		return gruvbox
	}
	return everforest
}

// colorComponent hashes the component name so each component keeps one color.
func colorComponent(name string) string {
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	p := colors().component
	return p[hash%len(p)]
}

var bufferPool = buffer.NewPool()

// minimalEncoder is a calm, compact console encoder.
// Format: "13:04:35  pulse  ✿ job started  job_id=… mode=auto"
//
// Context fields added through With are kept in the embedded map encoder
// and printed ahead of the entry's own fields.
type minimalEncoder struct {
	*zapcore.MapObjectEncoder
}

func newMinimalEncoder() *minimalEncoder {
	return &minimalEncoder{MapObjectEncoder: zapcore.NewMapObjectEncoder()}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	clone := newMinimalEncoder()
	for k, v := range enc.Fields {
		clone.Fields[k] = v
	}
	return clone
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	p := colors()
	final := bufferPool.Get()

	final.AppendString(p.time)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	// Level: only shown for WARN and above
	if ent.Level > zapcore.InfoLevel {
		final.AppendString("  ")
		final.AppendString(levelColorString(ent.Level))
	}

	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(colorComponent(ent.LoggerName))
		final.AppendString(abbreviateName(ent.LoggerName))
		final.AppendString(colorReset)
	}

	kvs := enc.collect(fields)

	final.AppendString("  ")
	if glyph, ok := popKey(&kvs, FieldSymbol); ok {
		final.AppendString(p.glyph)
		final.AppendString(glyph)
		final.AppendString(colorReset)
		final.AppendString(" ")
	}
	final.AppendString(p.fg)
	final.AppendString(ent.Message)
	final.AppendString(colorReset)

	if len(kvs) > 0 {
		final.AppendString("  ")
		final.AppendString(formatFields(kvs))
	}

	final.AppendString("\n")
	return final, nil
}

type keyValue struct {
	key   string
	value string
}

// collect flattens context fields (sorted by key) followed by entry fields
// (in call order). Nothing is dropped except zap's verbose error duplicates.
func (enc *minimalEncoder) collect(fields []zapcore.Field) []keyValue {
	kvs := make([]keyValue, 0, len(enc.Fields)+len(fields))

	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.HasSuffix(k, "Verbose") {
			continue
		}
		kvs = append(kvs, keyValue{k, fmt.Sprint(enc.Fields[k])})
	}

	for _, f := range fields {
		m := zapcore.NewMapObjectEncoder()
		f.AddTo(m)
		for k, v := range m.Fields {
			if strings.HasSuffix(k, "Verbose") {
				continue
			}
			kvs = append(kvs, keyValue{k, fmt.Sprint(v)})
		}
	}
	return kvs
}

func popKey(kvs *[]keyValue, key string) (string, bool) {
	for i, kv := range *kvs {
		if kv.key == key {
			*kvs = append((*kvs)[:i], (*kvs)[i+1:]...)
			return kv.value, true
		}
	}
	return "", false
}

// formatFields renders key=value pairs, coloring identifiers and numbers.
func formatFields(kvs []keyValue) string {
	p := colors()
	parts := make([]string, 0, len(kvs))
	for _, kv := range kvs {
		color := p.fg
		switch kv.key {
		case FieldJobID, FieldCommandID:
			color = p.id
		case FieldDurationMS, FieldCount, FieldDelayMS:
			color = p.number
		case FieldError:
			color = p.err
		}
		parts = append(parts, kv.key+"="+color+kv.value+colorReset)
	}
	return strings.Join(parts, " ")
}

// levelColorString returns bold + colored + background for WARN/ERROR
func levelColorString(level zapcore.Level) string {
	p := colors()
	switch level {
	case zapcore.WarnLevel:
		return colorBold + p.warnBg + p.warn + "WARN" + colorReset
	default:
		return colorBold + p.errBg + p.err + level.CapitalString() + colorReset
	}
}

// abbreviateName shortens component names: pulse.lane -> p.lane
func abbreviateName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) > 1 && parts[0] != "" {
		return string(parts[0][0]) + "." + strings.Join(parts[1:], ".")
	}
	return name
}

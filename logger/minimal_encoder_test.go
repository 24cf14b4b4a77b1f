package logger

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// stripANSI removes ANSI color codes from a string for testing
func stripANSI(str string) string {
	return ansiRegex.ReplaceAllString(str, "")
}

func encodeEntry(t *testing.T, enc zapcore.Encoder, ent zapcore.Entry, fields ...zapcore.Field) string {
	t.Helper()
	buf, err := enc.EncodeEntry(ent, fields)
	require.NoError(t, err)
	defer buf.Free()
	return stripANSI(buf.String())
}

// The console encoder must never silently drop fields.
func TestMinimalEncoderNeverDiscardsFields(t *testing.T) {
	entry := zapcore.Entry{
		Level:      zapcore.InfoLevel,
		Time:       time.Now(),
		LoggerName: "pulse",
		Message:    "command finished",
	}

	tests := []struct {
		field    zapcore.Field
		mustFind string
	}{
		{zap.String(FieldJobID, "3f2a"), "job_id=3f2a"},
		{zap.Uint32(FieldCommandID, 12), "command_id=12"},
		{zap.String(FieldLane, "io"), "lane=io"},
		{zap.Bool("deprecated", true), "deprecated=true"},
		{zap.Float64("ratio", 0.5), "ratio=0.5"},
		{zap.Int64(FieldDurationMS, 42), "duration_ms=42"},
		{zap.String("field.with.dots", "x"), "field.with.dots=x"},
		{zap.Error(errors.New("boom")), "error=boom"},
	}

	for _, tt := range tests {
		t.Run(tt.mustFind, func(t *testing.T) {
			out := encodeEntry(t, newMinimalEncoder(), entry, tt.field)
			assert.Contains(t, out, tt.mustFind)
		})
	}
}

func TestMinimalEncoderKeepsContextFields(t *testing.T) {
	enc := newMinimalEncoder()
	enc.AddString(FieldJobID, "job-9")
	clone := enc.Clone()
	clone.AddString(FieldLane, "db")

	ent := zapcore.Entry{Level: zapcore.InfoLevel, Time: time.Now(), Message: "m"}

	out := encodeEntry(t, clone, ent, zap.Int(FieldCount, 2))
	assert.Contains(t, out, "job_id=job-9 lane=db count=2")

	// The original encoder is untouched by the clone's additions.
	out = encodeEntry(t, enc, ent)
	assert.NotContains(t, out, "lane=db")
}

func TestMinimalEncoderLayout(t *testing.T) {
	ts := time.Date(2024, 5, 1, 13, 4, 35, 0, time.UTC)

	t.Run("symbol leads the message", func(t *testing.T) {
		ent := zapcore.Entry{Level: zapcore.InfoLevel, Time: ts, LoggerName: "pulse.lane", Message: "job started"}
		out := encodeEntry(t, newMinimalEncoder(), ent, zap.String(FieldSymbol, "✿"))
		assert.Equal(t, "13:04:35  p.lane  ✿ job started\n", out)
	})

	t.Run("warn level shown", func(t *testing.T) {
		ent := zapcore.Entry{Level: zapcore.WarnLevel, Time: ts, Message: "slow"}
		out := encodeEntry(t, newMinimalEncoder(), ent)
		assert.Equal(t, "13:04:35  WARN  slow\n", out)
	})

	t.Run("info level hidden", func(t *testing.T) {
		ent := zapcore.Entry{Level: zapcore.InfoLevel, Time: ts, Message: "calm"}
		out := encodeEntry(t, newMinimalEncoder(), ent)
		assert.Equal(t, "13:04:35  calm\n", out)
	})
}

func TestAbbreviateName(t *testing.T) {
	assert.Equal(t, "pulse", abbreviateName("pulse"))
	assert.Equal(t, "p.lane", abbreviateName("pulse.lane"))
	assert.Equal(t, "c.run.step", abbreviateName("chain.run.step"))
}

func TestSetTheme(t *testing.T) {
	t.Cleanup(func() { currentTheme = "everforest" })

	SetTheme("gruvbox")
	assert.Equal(t, gruvbox.time, colors().time)

	SetTheme("solarized")
	assert.Equal(t, "gruvbox", currentTheme, "unknown themes are ignored")

	SetTheme("everforest")
	assert.Equal(t, everforest.time, colors().time)
}

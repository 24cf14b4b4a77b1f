package sym

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGlyph(t *testing.T) {
	assert.Equal(t, Pulse, Glyph("pulse"))
	assert.Equal(t, PulseOpen, Glyph("pulse-open"))
	assert.Equal(t, PulseClose, Glyph("pulse-close"))
	assert.Equal(t, Tagged, Glyph("tagged"))
	assert.Equal(t, "", Glyph("unknown"))
}

func TestGlyphsAreDistinct(t *testing.T) {
	seen := make(map[string]string)
	for name, g := range byName {
		if other, dup := seen[g]; dup {
			t.Errorf("glyph %q shared by %s and %s", g, name, other)
		}
		seen[g] = name
	}
}

package commands

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short"))

	long := strings.Repeat("a", 80)
	assert.Equal(t, strings.Repeat("a", 57)+"...", clip(long))

	// Truncation must never split a multi-byte rune.
	wide := strings.Repeat("é", 80)
	clipped := clip(wide)
	assert.True(t, utf8.ValidString(clipped))
	assert.Equal(t, strings.Repeat("é", 57)+"...", clipped)
}

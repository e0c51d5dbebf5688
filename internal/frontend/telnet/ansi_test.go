package telnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestColorize(t *testing.T) {
	assert.Equal(t, "\033[31mdanger\033[0m", Colorize(Red, "danger"))
	assert.Equal(t, "", Colorize(Red, ""))
}

func TestStripANSI(t *testing.T) {
	input := "\033[36m=== A tavern ===\033[0m\n\033[1m\033[32mExits:\033[0m"
	assert.Equal(t, "=== A tavern ===\nExits:", StripANSI(input))
	assert.Equal(t, "plain text", StripANSI("plain text"))
	assert.Equal(t, "", StripANSI(""))
	assert.Equal(t, "\033[unterminated", StripANSI("\033[unterminated"))
}

func TestPropertyStripANSIInversesColorize(t *testing.T) {
	colors := []string{Bold, Dim, Red, Green, Yellow, Cyan}
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[a-zA-Z0-9 ]{0,50}`).Draw(t, "text")
		color := rapid.SampledFrom(colors).Draw(t, "color")
		if got := StripANSI(Colorize(color, text)); got != text {
			t.Fatalf("StripANSI(Colorize(%q)) = %q", text, got)
		}
	})
}

func TestPropertyStripANSIOutputShorterOrEqual(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		assert.LessOrEqual(t, len(StripANSI(text)), len(text))
	})
}

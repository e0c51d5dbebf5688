package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/hinterland/internal/frontend/telnet"
)

const sampleLocation = "=== A capital ===\nThe capital city.\nExits:\n - A alley"

func TestRenderer_PlainIsIdentity(t *testing.T) {
	r := Renderer{}
	assert.Equal(t, sampleLocation, r.Location(sampleLocation))
	assert.Equal(t, "You travel to alley.", r.Travel("alley"))
	assert.Equal(t, "Bob says: hi", r.Speech("Bob", "hi"))
	assert.Equal(t, "[Bob]> ", r.Prompt("Bob"))
	assert.Equal(t, "nope", r.Failure("nope"))
}

func TestRenderer_LocationColorsHeaderAndExits(t *testing.T) {
	r := Renderer{Color: true}
	out := r.Location(sampleLocation)

	assert.Contains(t, out, telnet.Bold+telnet.Cyan+"=== A capital ===")
	assert.Contains(t, out, telnet.Green+"Exits:")
	assert.Contains(t, out, "\nThe capital city.\n", "description lines stay plain")
	assert.Equal(t, sampleLocation, telnet.StripANSI(out))
}

func TestRenderer_LookDimsUndiscovered(t *testing.T) {
	r := Renderer{Color: true}
	text := "You look around and see the following places:\n - A alley: Narrow.\n - A cellar (undiscovered)"
	out := r.Look(text)

	assert.Contains(t, out, telnet.Dim+" - A cellar (undiscovered)")
	assert.Contains(t, out, "\n - A alley: Narrow.\n")
	assert.Equal(t, text, telnet.StripANSI(out))
}

func TestPropertyRendererColorOnlyAddsEscapes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[a-zA-Z =:\-\n]{0,80}`).Draw(t, "text")
		plain, color := Renderer{}, Renderer{Color: true}
		if got := telnet.StripANSI(color.Location(text)); got != plain.Location(text) {
			t.Fatalf("Location: stripped %q != plain %q", got, plain.Location(text))
		}
		if got := telnet.StripANSI(color.Look(text)); got != plain.Look(text) {
			t.Fatalf("Look: stripped %q != plain %q", got, plain.Look(text))
		}
	})
}

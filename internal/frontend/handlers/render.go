package handlers

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/hinterland/internal/frontend/telnet"
)

// Renderer styles engine text for a terminal. With color disabled every
// method returns its input unchanged apart from layout.
type Renderer struct {
	Color bool
}

func (r Renderer) paint(code, text string) string {
	if !r.Color {
		return text
	}
	return telnet.Colorize(code, text)
}

// Location styles the output of explore.Engine.DescribeCurrent: the
// "=== label ===" header and the "Exits:" heading.
func (r Renderer) Location(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "=== ") && strings.HasSuffix(line, " ==="):
			lines[i] = r.paint(telnet.Bold+telnet.Cyan, line)
		case line == "Exits:":
			lines[i] = r.paint(telnet.Green, line)
		}
	}
	return strings.Join(lines, "\n")
}

// Look styles the output of explore.Engine.LookAround, dimming undiscovered places.
func (r Renderer) Look(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.HasSuffix(line, "(undiscovered)") {
			lines[i] = r.paint(telnet.Dim, line)
		}
	}
	return strings.Join(lines, "\n")
}

// Travel is the line shown after a successful move.
func (r Renderer) Travel(locationType string) string {
	return r.paint(telnet.Yellow, fmt.Sprintf("You travel to %s.", locationType))
}

// Speech is the line other players see when name says message.
func (r Renderer) Speech(name, message string) string {
	return r.paint(telnet.Bold, fmt.Sprintf("%s says: %s", name, message))
}

// Notice is a line about another player's coming and going.
func (r Renderer) Notice(text string) string {
	return r.paint(telnet.Dim, text)
}

// Failure is a line reporting that something could not be done.
func (r Renderer) Failure(text string) string {
	return r.paint(telnet.Red, text)
}

// Prompt is the input prompt for a player.
func (r Renderer) Prompt(name string) string {
	return r.paint(telnet.Cyan, fmt.Sprintf("[%s]> ", name))
}

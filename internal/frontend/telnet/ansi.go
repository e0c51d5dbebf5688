// Package telnet serves the game over Telnet: a TCP acceptor with a session
// cap, a line-oriented connection that filters protocol commands, and ANSI
// styling helpers for output.
package telnet

// ANSI escape codes used by the game's output.
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
)

// Colorize wraps text with the given ANSI code and a reset suffix. Empty text
// stays empty.
func Colorize(color, text string) string {
	if text == "" {
		return ""
	}
	return color + text + Reset
}

// StripANSI removes every \033[...m sequence from s.
func StripANSI(s string) string {
	result := make([]byte, 0, len(s))
	for i := 0; i < len(s); {
		if s[i] == '\033' && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && s[j] != 'm' {
				j++
			}
			if j < len(s) {
				i = j + 1
				continue
			}
		}
		result = append(result, s[i])
		i++
	}
	return string(result)
}

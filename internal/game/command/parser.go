package command

import (
	"regexp"
	"strings"
)

// ParseResult holds the parsed command name and arguments from a text line.
type ParseResult struct {
	// Command is the first word of the input, lowercased.
	Command string
	// Args are the remaining words after the command.
	Args []string
	// RawArgs is the raw text after the command (preserving spacing for say).
	RawArgs string
}

// Parse splits a text line into a command and arguments.
//
// Postcondition: Returns a ParseResult. If line is blank, Command is empty.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(line)
	if line == "" {
		return ParseResult{}
	}

	spaceIdx := strings.IndexByte(line, ' ')
	if spaceIdx < 0 {
		return ParseResult{
			Command: strings.ToLower(line),
		}
	}

	cmd := strings.ToLower(line[:spaceIdx])
	rest := strings.TrimSpace(line[spaceIdx+1:])

	var args []string
	if rest != "" {
		args = strings.Fields(rest)
	}

	return ParseResult{
		Command: cmd,
		Args:    args,
		RawArgs: rest,
	}
}

// Verb is the kind of action a free-form sentence asks for.
type Verb string

// Recognized verbs.
const (
	VerbMove    Verb = "move"
	VerbLook    Verb = "look"
	VerbTalk    Verb = "talk"
	VerbUnknown Verb = "unknown"
)

// Intent is the action recognized in a sentence. Target is the place for
// VerbMove and the addressee, if named, for VerbTalk. Message is only set for
// VerbTalk.
type Intent struct {
	Verb    Verb
	Target  string
	Message string
}

var (
	movePattern    = regexp.MustCompile(`(?i)\b(?:go|walk|enter|head|move|step|climb)\s+(?:(?:to|into|through|up|down)\s+)?(?:the\s+)?(?P<target>[a-zA-Z0-9\s'-]+)`)
	talkPattern    = regexp.MustCompile(`(?i)\b(?:say|speak|talk)\b`)
	messagePattern = regexp.MustCompile(`['"]([^'"]+)['"]`)
	addressPattern = regexp.MustCompile(`(?i)\bto\s+(?:the\s+)?([a-z0-9'-]+)`)
	targetGroup    = movePattern.SubexpIndex("target")
)

// ParseIntent recognizes the action in a free-form sentence. Talk is checked
// first and needs a quoted message; then movement; then a sentence starting
// with "look" or "examine". Anything else is VerbUnknown.
func ParseIntent(line string) Intent {
	line = strings.TrimSpace(line)
	lower := strings.ToLower(line)

	if talkPattern.MatchString(line) {
		if m := messagePattern.FindStringSubmatch(line); m != nil {
			intent := Intent{Verb: VerbTalk, Message: strings.TrimSpace(m[1])}
			// Only the text before the quote can name the addressee.
			before := line[:strings.Index(line, m[0])]
			if a := addressPattern.FindStringSubmatch(before); a != nil {
				intent.Target = strings.ToLower(a[1])
			}
			return intent
		}
	}

	if m := movePattern.FindStringSubmatch(lower); m != nil {
		if target := strings.TrimSpace(m[targetGroup]); target != "" {
			return Intent{Verb: VerbMove, Target: target}
		}
	}

	if strings.HasPrefix(lower, "look") || strings.HasPrefix(lower, "examine") {
		return Intent{Verb: VerbLook}
	}
	return Intent{Verb: VerbUnknown}
}

// MoveTarget extracts the destination from the arguments of a movement
// command, dropping a leading preposition and article: "to the alley" and
// "alley" both yield "alley".
func MoveTarget(rawArgs string) string {
	if m := movePattern.FindStringSubmatch("go " + strings.ToLower(rawArgs)); m != nil {
		return strings.TrimSpace(m[targetGroup])
	}
	return strings.ToLower(strings.TrimSpace(rawArgs))
}

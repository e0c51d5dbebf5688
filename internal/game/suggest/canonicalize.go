// Package suggest turns free-text location suggestions into canonical
// location-type tokens.
package suggest

import (
	"regexp"
	"strings"
)

var (
	// listMarker matches a leading "1.", "2)", ")" or "-" bullet and the whitespace after it.
	// Digits alone are not a marker: "3 towers" keeps its number.
	listMarker = regexp.MustCompile(`^\s*(?:\d*[.)]|-)\s*`)
	// leadingArticle matches "a", "an" or "the" followed by whitespace, any case.
	leadingArticle = regexp.MustCompile(`(?i)^(?:a|an|the)\s+`)
	// aside matches a parenthesized note and the whitespace before it.
	aside = regexp.MustCompile(`\s*\([^)]*\)`)
)

// quoteChars are stripped from both ends of every fragment.
const quoteChars = "\"'“”‘’`"

// Canonicalize splits one block of generator output into location-type tokens.
//
// Lines are split on newlines, stripped of list markers, then split on commas.
// Each fragment is trimmed, unquoted, stripped of periods, of one leading
// article and of parenthesized asides, lower-cased and whitespace-collapsed.
// Empty fragments are dropped.
//
// Postcondition: Tokens appear in line then comma order. Duplicates are kept;
// callers deduplicate against the graph.
func Canonicalize(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = listMarker.ReplaceAllString(strings.TrimRight(line, "\r"), "")
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, fragment := range strings.Split(line, ",") {
			if token := canonicalizeFragment(fragment); token != "" {
				out = append(out, token)
			}
		}
	}
	return out
}

func canonicalizeFragment(s string) string {
	s = unquote(s)
	s = unquote(strings.ReplaceAll(s, ".", ""))
	s = leadingArticle.ReplaceAllString(s, "")
	s = unquote(aside.ReplaceAllString(s, ""))
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func unquote(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), quoteChars))
}

package explore

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cory-johannsen/hinterland/internal/game/world"
	"github.com/cory-johannsen/hinterland/internal/narrator"
)

// PlaceholderDescription is the description of a location created by expansion
// until it is discovered.
const PlaceholderDescription = "An undiscovered place."

// DescribePrompt asks for a short description of a location of the given type.
// It depends on nothing but the type.
func DescribePrompt(locationType string) string {
	return "There is a location described as: '" + locationType + "'.\n" +
		"Please write a short, immersive paragraph describing the new location.\n" +
		"Do not describe the surroundings of the location, just describe the location itself. " +
		"Do not include a name unless it's natural to do so in the prose."
}

// NearbyPrompt asks for new location types near loc, listing the neighbors
// the player can already see so the narrator does not repeat them.
func NearbyPrompt(loc *world.Location, neighbors []*world.Location) string {
	var sb strings.Builder
	sb.WriteString("You are the narrator of a text adventure game.\n")
	sb.WriteString("The player is currently in a location.\n")
	sb.WriteString("Description: " + loc.Description() + "\n")
	sb.WriteString("Nearby, the player can already see:\n")
	for _, n := range neighbors {
		sb.WriteString(" - " + n.FallbackLabel() + "\n")
	}
	sb.WriteString("Please list 1-2 plausible new nearby location types the player might discover. ")
	sb.WriteString("Examples of location types: alley, warehouse, tavern, cellar, courtyard, etc. ")
	sb.WriteString("Output ONLY the types, comma-separated. Do not repeat known ones.")
	return sb.String()
}

// RegionTypePrompt asks what type of region a free-text summary describes.
func RegionTypePrompt(summary string) string {
	return "You are the narrator of a text adventure game.\n" +
		"Based on the following description, what type of region would this be?\n" +
		"Description: " + summary + "\n\n" +
		"Examples of region types: city, forest, desert, mountain range, coastal area, etc.\n" +
		"Respond with ONLY the region type, nothing else. Keep it to 1-3 words."
}

var (
	regionArticle = regexp.MustCompile(`(?i)^(?:a|an|the)\s+`)
	regionAside   = regexp.MustCompile(`\s*\([^)]*\)`)
	regionPeriod  = regexp.MustCompile(`\s*\.$`)
)

// CleanRegionType normalises a narrator answer to RegionTypePrompt: one leading
// article, parenthesized notes, and a trailing period are removed, whitespace
// is collapsed, and the result is lower-cased.
func CleanRegionType(text string) string {
	s := strings.TrimSpace(text)
	s = regionArticle.ReplaceAllString(s, "")
	s = regionAside.ReplaceAllString(s, "")
	s = regionPeriod.ReplaceAllString(s, "")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// InferRegionType asks n what type of region summary describes.
//
// Postcondition: Returns a non-empty cleaned type or a non-nil error.
func InferRegionType(ctx context.Context, n narrator.Narrator, summary string) (string, error) {
	text, err := n.Request(ctx, RegionTypePrompt(summary))
	if err != nil {
		return "", fmt.Errorf("inferring region type: %w", err)
	}
	typ := CleanRegionType(text)
	if typ == "" {
		return "", fmt.Errorf("inferring region type: %w", narrator.ErrEmptyResponse)
	}
	return typ, nil
}

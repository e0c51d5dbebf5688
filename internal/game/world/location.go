// Package world provides the world graph: locations, the regions that group
// them, and the registries that own both.
//
// Locations and regions refer to each other by integer handle only. The
// registries are arenas keyed by those handles; nothing in this package holds
// a pointer from one node to another.
//
// Nothing here is safe for concurrent use. Callers that share a World across
// goroutines must serialize access (see explore.Engine).
package world

import (
	"slices"
	"strings"
)

// LocationID is the stable handle of a Location. IDs start at 1 and are never reused.
type LocationID int64

// RegionID is the stable handle of a Region. IDs start at 1 and are never reused.
// The zero value means "no region".
type RegionID int64

// NoRegion is the RegionID used for "no parent".
const NoRegion RegionID = 0

// UnknownPlaceLabel is the display label of a location with no type.
const UnknownPlaceLabel = "An unknown place"

// Location is a node of the world graph: a place a character can occupy.
//
// Invariant: neighbors never contains id, and never contains duplicates.
// Invariant: for every n in neighbors, the location n lists id as a neighbor
// (maintained by LocationRegistry.Connect; Location has no exported way to
// add an edge on one side only).
type Location struct {
	id                 LocationID
	typ                string
	description        string
	discovered         bool
	neighborsGenerated bool
	neighbors          []LocationID
	region             RegionID
	occupants          []int64
}

// ID returns the location's handle.
func (l *Location) ID() LocationID { return l.id }

// Type returns the short free-text label of the location, e.g. "tavern".
func (l *Location) Type() string { return l.typ }

// Description returns the long-form text of the location.
func (l *Location) Description() string { return l.description }

// Discovered reports whether a description has been generated for this location.
func (l *Location) Discovered() bool { return l.discovered }

// NeighborsGenerated reports whether the expansion step has completed for this location.
func (l *Location) NeighborsGenerated() bool { return l.neighborsGenerated }

// RegionID returns the handle of the owning region.
func (l *Location) RegionID() RegionID { return l.region }

// Neighbors returns a copy of the neighbor handles in the order the edges were added.
func (l *Location) Neighbors() []LocationID { return slices.Clone(l.neighbors) }

// Occupants returns a copy of the ids of the characters currently present, in arrival order.
func (l *Location) Occupants() []int64 { return slices.Clone(l.occupants) }

// HasNeighbor reports whether an edge to id exists.
func (l *Location) HasNeighbor(id LocationID) bool {
	return slices.Contains(l.neighbors, id)
}

// SetDescription replaces the location's description.
func (l *Location) SetDescription(text string) { l.description = text }

// MarkDiscovered records that the location's description has been generated.
func (l *Location) MarkDiscovered() { l.discovered = true }

// MarkNeighborsGenerated records that the expansion step has completed.
func (l *Location) MarkNeighborsGenerated() { l.neighborsGenerated = true }

// FallbackLabel returns the display label used in exit lists and prompts:
// "A <type>", or UnknownPlaceLabel when the type is empty.
func (l *Location) FallbackLabel() string {
	if l.typ == "" {
		return UnknownPlaceLabel
	}
	return "A " + l.typ
}

// Matches reports whether name refers to this location: a case-insensitive
// match against the type or against FallbackLabel.
func (l *Location) Matches(name string) bool {
	return strings.EqualFold(l.FallbackLabel(), name) || strings.EqualFold(l.typ, name)
}

// addNeighbor inserts the one-sided half of an edge. Callers must insert the
// other half as well.
func (l *Location) addNeighbor(id LocationID) bool {
	if id == l.id || l.HasNeighbor(id) {
		return false
	}
	l.neighbors = append(l.neighbors, id)
	return true
}

func (l *Location) addOccupant(id int64) bool {
	if slices.Contains(l.occupants, id) {
		return false
	}
	l.occupants = append(l.occupants, id)
	return true
}

func (l *Location) removeOccupant(id int64) bool {
	i := slices.Index(l.occupants, id)
	if i < 0 {
		return false
	}
	l.occupants = slices.Delete(l.occupants, i, i+1)
	return true
}

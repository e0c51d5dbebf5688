package world

import (
	"maps"
	"slices"
)

// Region is a hierarchical container of locations and sub-regions
// (continent, territory, settlement).
//
// Invariant: parent is NoRegion or the id of a region whose subregions set contains id.
// Invariant: locations holds only the locations owned directly by this region.
type Region struct {
	id         RegionID
	typ        string
	name       string
	locations  map[LocationID]struct{}
	subregions map[RegionID]struct{}
	parent     RegionID
}

func newRegion(id RegionID, typ, name string) *Region {
	return &Region{
		id:         id,
		typ:        typ,
		name:       name,
		locations:  make(map[LocationID]struct{}),
		subregions: make(map[RegionID]struct{}),
	}
}

// ID returns the region's handle.
func (r *Region) ID() RegionID { return r.id }

// Type returns the region's category label, e.g. "territory".
func (r *Region) Type() string { return r.typ }

// Name returns the display name and whether one is set.
func (r *Region) Name() (string, bool) { return r.name, r.name != "" }

// Parent returns the parent region handle and whether the region has a parent.
func (r *Region) Parent() (RegionID, bool) { return r.parent, r.parent != NoRegion }

// LocationIDs returns the directly owned location handles in ascending order.
func (r *Region) LocationIDs() []LocationID {
	return slices.Sorted(maps.Keys(r.locations))
}

// SubregionIDs returns the child region handles in ascending order.
func (r *Region) SubregionIDs() []RegionID {
	return slices.Sorted(maps.Keys(r.subregions))
}

// HasLocation reports whether the region directly owns the location.
func (r *Region) HasLocation(id LocationID) bool {
	_, ok := r.locations[id]
	return ok
}

// HasSubregion reports whether id is a direct child of this region.
func (r *Region) HasSubregion(id RegionID) bool {
	_, ok := r.subregions[id]
	return ok
}

// AddLocation records the location as directly owned by this region. Idempotent.
//
// Precondition: the location's RegionID is r.ID(); World.AddLocation keeps both sides in step.
func (r *Region) AddLocation(id LocationID) { r.locations[id] = struct{}{} }

// RemoveLocation drops the location from this region's direct set.
//
// Postcondition: Returns true if the location was present.
func (r *Region) RemoveLocation(id LocationID) bool {
	if _, ok := r.locations[id]; !ok {
		return false
	}
	delete(r.locations, id)
	return true
}

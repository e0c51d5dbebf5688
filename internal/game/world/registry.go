package world

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrLocationNotFound is returned when a location handle does not resolve.
	ErrLocationNotFound = errors.New("location not found")
	// ErrRegionNotFound is returned when a region handle does not resolve.
	ErrRegionNotFound = errors.New("region not found")
	// ErrSelfEdge marks a location listed as its own neighbor. Connect never
	// creates one; Validate reports it.
	ErrSelfEdge = errors.New("location is its own neighbor")
	// ErrRegionCycle is returned when a reparent would make a region its own ancestor.
	ErrRegionCycle = errors.New("region hierarchy cycle")
	// ErrRegionNotEmpty is returned when removing a root region that still owns locations.
	ErrRegionNotEmpty = errors.New("region still owns locations")
)

// LocationRegistry owns every Location and issues their handles.
// It is the only place locations come into existence.
type LocationRegistry struct {
	locations map[LocationID]*Location
	next      LocationID
}

// NewLocationRegistry creates an empty registry whose first handle is 1.
func NewLocationRegistry() *LocationRegistry {
	return &LocationRegistry{
		locations: make(map[LocationID]*Location),
		next:      1,
	}
}

// Create allocates the next handle, stores a new undiscovered location, and returns it.
// It does not touch the owning region; World.AddLocation does both.
//
// Postcondition: The returned location's ID is greater than every previously issued ID.
func (r *LocationRegistry) Create(typ, description string, region RegionID) *Location {
	loc := &Location{
		id:          r.next,
		typ:         typ,
		description: description,
		region:      region,
	}
	r.locations[loc.id] = loc
	r.next++
	return loc
}

// restore inserts a location with a caller-chosen handle (snapshot loading).
func (r *LocationRegistry) restore(loc *Location) error {
	if loc.id < 1 {
		return fmt.Errorf("location id must be >= 1, got %d", loc.id)
	}
	if _, exists := r.locations[loc.id]; exists {
		return fmt.Errorf("duplicate location id %d", loc.id)
	}
	r.locations[loc.id] = loc
	if loc.id >= r.next {
		r.next = loc.id + 1
	}
	return nil
}

// Get returns the location with the given handle.
//
// Postcondition: Returns (location, true) if found, or (nil, false) otherwise.
func (r *LocationRegistry) Get(id LocationID) (*Location, bool) {
	loc, ok := r.locations[id]
	return loc, ok
}

// Len returns the number of registered locations.
func (r *LocationRegistry) Len() int { return len(r.locations) }

// All returns every location in ascending handle order.
func (r *LocationRegistry) All() []*Location {
	out := make([]*Location, 0, len(r.locations))
	for _, loc := range r.locations {
		out = append(out, loc)
	}
	slices.SortFunc(out, func(a, b *Location) int { return cmp.Compare(a.id, b.id) })
	return out
}

// Connect adds the undirected edge (a, b). Connecting a location to itself is a
// no-op, as is connecting two locations that are already adjacent.
//
// Postcondition: Returns true if a new edge was created; both endpoints list each other.
// Returns ErrLocationNotFound if either handle does not resolve.
func (r *LocationRegistry) Connect(a, b LocationID) (bool, error) {
	la, ok := r.locations[a]
	if !ok {
		return false, fmt.Errorf("connecting %d: %w", a, ErrLocationNotFound)
	}
	lb, ok := r.locations[b]
	if !ok {
		return false, fmt.Errorf("connecting %d: %w", b, ErrLocationNotFound)
	}
	if a == b || la.HasNeighbor(b) {
		return false, nil
	}
	la.addNeighbor(b)
	lb.addNeighbor(a)
	return true, nil
}

// Neighbors resolves the neighbors of id in edge order. Handles that do not
// resolve are skipped; Validate reports them.
func (r *LocationRegistry) Neighbors(id LocationID) []*Location {
	loc, ok := r.locations[id]
	if !ok {
		return nil
	}
	out := make([]*Location, 0, len(loc.neighbors))
	for _, n := range loc.neighbors {
		if nl, ok := r.locations[n]; ok {
			out = append(out, nl)
		}
	}
	return out
}

// FindConnectionTo returns the first neighbor of from, in edge order, whose
// label "A <type>" or bare type equals name ignoring case.
//
// Postcondition: Returns (neighbor, true) on a match, or (nil, false).
func (r *LocationRegistry) FindConnectionTo(from LocationID, name string) (*Location, bool) {
	for _, n := range r.Neighbors(from) {
		if n.Matches(name) {
			return n, true
		}
	}
	return nil, false
}

// AddOccupant appends a character to the location's occupant list. Idempotent.
func (r *LocationRegistry) AddOccupant(id LocationID, characterID int64) error {
	loc, ok := r.locations[id]
	if !ok {
		return fmt.Errorf("adding occupant to %d: %w", id, ErrLocationNotFound)
	}
	loc.addOccupant(characterID)
	return nil
}

// RemoveOccupant removes a character from the location's occupant list.
func (r *LocationRegistry) RemoveOccupant(id LocationID, characterID int64) error {
	loc, ok := r.locations[id]
	if !ok {
		return fmt.Errorf("removing occupant from %d: %w", id, ErrLocationNotFound)
	}
	loc.removeOccupant(characterID)
	return nil
}

// SetOccupants replaces the location's occupant list, dropping duplicates.
func (r *LocationRegistry) SetOccupants(id LocationID, characterIDs []int64) error {
	loc, ok := r.locations[id]
	if !ok {
		return fmt.Errorf("setting occupants of %d: %w", id, ErrLocationNotFound)
	}
	loc.occupants = nil
	for _, c := range characterIDs {
		loc.addOccupant(c)
	}
	return nil
}

// RegionRegistry owns every Region and issues their handles.
type RegionRegistry struct {
	regions  map[RegionID]*Region
	order    []RegionID
	next     RegionID
	topLevel RegionID
}

// NewRegionRegistry creates an empty registry whose first handle is 1.
func NewRegionRegistry() *RegionRegistry {
	return &RegionRegistry{
		regions: make(map[RegionID]*Region),
		next:    1,
	}
}

// Create allocates a parentless region. The first region created while no
// top-level region is tracked becomes the top-level region.
//
// Precondition: typ should be non-empty; name may be empty.
// Postcondition: Returns a registered region with no parent.
func (r *RegionRegistry) Create(typ, name string) *Region {
	reg := newRegion(r.next, typ, name)
	r.regions[reg.id] = reg
	r.order = append(r.order, reg.id)
	r.next++
	if r.topLevel == NoRegion {
		r.topLevel = reg.id
	}
	return reg
}

// restore inserts a region with a caller-chosen handle (snapshot loading).
func (r *RegionRegistry) restore(reg *Region) error {
	if reg.id < 1 {
		return fmt.Errorf("region id must be >= 1, got %d", reg.id)
	}
	if _, exists := r.regions[reg.id]; exists {
		return fmt.Errorf("duplicate region id %d", reg.id)
	}
	r.regions[reg.id] = reg
	r.order = append(r.order, reg.id)
	if reg.id >= r.next {
		r.next = reg.id + 1
	}
	return nil
}

// Get returns the region with the given handle.
//
// Postcondition: Returns (region, true) if found, or (nil, false) otherwise.
func (r *RegionRegistry) Get(id RegionID) (*Region, bool) {
	reg, ok := r.regions[id]
	return reg, ok
}

// Len returns the number of registered regions.
func (r *RegionRegistry) Len() int { return len(r.regions) }

// All returns every region in registry order (creation order).
func (r *RegionRegistry) All() []*Region {
	out := make([]*Region, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.regions[id])
	}
	return out
}

// TopLevel returns the tracked top-level region.
func (r *RegionRegistry) TopLevel() (*Region, bool) {
	if r.topLevel == NoRegion {
		return nil, false
	}
	return r.Get(r.topLevel)
}

// Roots returns every parentless region in registry order.
func (r *RegionRegistry) Roots() []*Region {
	var out []*Region
	for _, id := range r.order {
		if reg := r.regions[id]; reg.parent == NoRegion {
			out = append(out, reg)
		}
	}
	return out
}

// FindRegionContaining returns the first region, in registry order, whose
// direct location set contains the location. Sub-regions are not searched.
func (r *RegionRegistry) FindRegionContaining(id LocationID) (*Region, bool) {
	for _, rid := range r.order {
		if reg := r.regions[rid]; reg.HasLocation(id) {
			return reg, true
		}
	}
	return nil, false
}

// IsAncestor reports whether ancestor appears on the parent chain of id.
// A region is not its own ancestor.
func (r *RegionRegistry) IsAncestor(ancestor, id RegionID) bool {
	seen := make(map[RegionID]bool)
	for cur, ok := r.regions[id]; ok && cur.parent != NoRegion; cur, ok = r.regions[cur.parent] {
		if cur.parent == ancestor {
			return true
		}
		if seen[cur.parent] {
			return false
		}
		seen[cur.parent] = true
	}
	return false
}

// AddSubregion makes child a direct sub-region of parent, detaching it from
// any previous parent first. The whole reparent happens before returning, so
// no caller observes a child with two parents or none.
//
// Postcondition: child.Parent() == parent and parent.HasSubregion(child).
// Returns ErrRegionNotFound for unknown handles and ErrRegionCycle when parent
// is child or a descendant of child.
func (r *RegionRegistry) AddSubregion(parent, child RegionID) error {
	p, ok := r.regions[parent]
	if !ok {
		return fmt.Errorf("parent %d: %w", parent, ErrRegionNotFound)
	}
	c, ok := r.regions[child]
	if !ok {
		return fmt.Errorf("child %d: %w", child, ErrRegionNotFound)
	}
	if parent == child || r.IsAncestor(child, parent) {
		return fmt.Errorf("attaching %d under %d: %w", child, parent, ErrRegionCycle)
	}
	if old, ok := r.regions[c.parent]; ok {
		delete(old.subregions, child)
	}
	c.parent = parent
	p.subregions[child] = struct{}{}
	if r.topLevel == child {
		r.rescanTopLevel()
	}
	return nil
}

// RemoveSubregion detaches child from parent, leaving child parentless.
//
// Postcondition: Returns true if child was a direct sub-region of parent.
func (r *RegionRegistry) RemoveSubregion(parent, child RegionID) bool {
	p, ok := r.regions[parent]
	if !ok || !p.HasSubregion(child) {
		return false
	}
	delete(p.subregions, child)
	if c, ok := r.regions[child]; ok {
		c.parent = NoRegion
	}
	return true
}

// Remove deletes a region. It is detached from its parent, its children become
// parentless, and the top-level pointer is re-resolved if it pointed here.
// Location memberships are the caller's concern; World.RemoveRegion rehomes them.
//
// Postcondition: Get(id) reports false. Returns ErrRegionNotFound for unknown handles.
func (r *RegionRegistry) Remove(id RegionID) error {
	reg, ok := r.regions[id]
	if !ok {
		return fmt.Errorf("removing %d: %w", id, ErrRegionNotFound)
	}
	if parent, ok := r.regions[reg.parent]; ok {
		delete(parent.subregions, id)
	}
	for child := range reg.subregions {
		if c, ok := r.regions[child]; ok {
			c.parent = NoRegion
		}
	}
	delete(r.regions, id)
	r.order = slices.DeleteFunc(r.order, func(rid RegionID) bool { return rid == id })
	if r.topLevel == id {
		r.rescanTopLevel()
	}
	return nil
}

// RemoveLocation drops loc from the direct location set of region.
//
// Postcondition: Returns true if the region existed and directly owned loc.
func (r *RegionRegistry) RemoveLocation(region RegionID, loc LocationID) bool {
	reg, ok := r.regions[region]
	if !ok {
		return false
	}
	return reg.RemoveLocation(loc)
}

// ContainsLocationRecursive reports whether the location is owned by the region
// or by any region below it.
func (r *RegionRegistry) ContainsLocationRecursive(id RegionID, loc LocationID) bool {
	reg, ok := r.regions[id]
	if !ok {
		return false
	}
	if reg.HasLocation(loc) {
		return true
	}
	for _, child := range reg.SubregionIDs() {
		if r.ContainsLocationRecursive(child, loc) {
			return true
		}
	}
	return false
}

// AllLocationIDs returns the locations owned by the region and every region
// below it, in ascending order.
func (r *RegionRegistry) AllLocationIDs(id RegionID) []LocationID {
	var out []LocationID
	var walk func(RegionID)
	walk = func(rid RegionID) {
		reg, ok := r.regions[rid]
		if !ok {
			return
		}
		out = append(out, reg.LocationIDs()...)
		for _, child := range reg.SubregionIDs() {
			walk(child)
		}
	}
	walk(id)
	slices.Sort(out)
	return out
}

func (r *RegionRegistry) rescanTopLevel() {
	r.topLevel = NoRegion
	if roots := r.Roots(); len(roots) > 0 {
		r.topLevel = roots[0].id
	}
}

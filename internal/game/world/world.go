package world

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// World is one self-contained world graph: a location arena, a region arena,
// and the default arrival point for new characters.
type World struct {
	// ID identifies this world instance across snapshots.
	ID uuid.UUID
	// Locations owns every location of the world.
	Locations *LocationRegistry
	// Regions owns every region of the world.
	Regions *RegionRegistry
	// Start is where new characters arrive. Zero means "first location".
	Start LocationID
}

// New creates an empty world with a fresh ID.
func New() *World {
	return &World{
		ID:        uuid.New(),
		Locations: NewLocationRegistry(),
		Regions:   NewRegionRegistry(),
	}
}

// AddRegion creates a region and, when parent is not NoRegion, attaches it under parent.
//
// Postcondition: Returns the new region, or ErrRegionNotFound if parent does not resolve
// (in which case nothing is created).
func (w *World) AddRegion(typ, name string, parent RegionID) (*Region, error) {
	if parent != NoRegion {
		if _, ok := w.Regions.Get(parent); !ok {
			return nil, fmt.Errorf("creating %s region: parent %d: %w", typ, parent, ErrRegionNotFound)
		}
	}
	reg := w.Regions.Create(typ, name)
	if parent != NoRegion {
		if err := w.Regions.AddSubregion(parent, reg.ID()); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// AddLocation creates a location owned by region and records it in the
// region's location set.
//
// Postcondition: Returns the new location, or ErrRegionNotFound (nothing created).
func (w *World) AddLocation(typ, description string, region RegionID) (*Location, error) {
	reg, ok := w.Regions.Get(region)
	if !ok {
		return nil, fmt.Errorf("creating %q location: region %d: %w", typ, region, ErrRegionNotFound)
	}
	loc := w.Locations.Create(typ, description, region)
	reg.AddLocation(loc.ID())
	return loc, nil
}

// Connect adds the undirected edge (a, b). See LocationRegistry.Connect.
func (w *World) Connect(a, b LocationID) (bool, error) {
	return w.Locations.Connect(a, b)
}

// MoveLocation transfers ownership of a location to another region.
func (w *World) MoveLocation(id LocationID, to RegionID) error {
	loc, ok := w.Locations.Get(id)
	if !ok {
		return fmt.Errorf("moving %d: %w", id, ErrLocationNotFound)
	}
	dst, ok := w.Regions.Get(to)
	if !ok {
		return fmt.Errorf("moving %d to %d: %w", id, to, ErrRegionNotFound)
	}
	w.Regions.RemoveLocation(loc.region, id)
	loc.region = to
	dst.AddLocation(id)
	return nil
}

// RemoveRegion deletes a region for editing tools. Locations it owns move to
// its parent, and its sub-regions are re-attached to that parent (or become
// roots when there is none).
//
// Postcondition: Returns ErrRegionNotEmpty, changing nothing, when the region
// has no parent and still owns locations.
func (w *World) RemoveRegion(id RegionID) error {
	reg, ok := w.Regions.Get(id)
	if !ok {
		return fmt.Errorf("removing %d: %w", id, ErrRegionNotFound)
	}
	parent, hasParent := reg.Parent()
	if !hasParent && len(reg.locations) > 0 {
		return fmt.Errorf("removing %d: %w", id, ErrRegionNotEmpty)
	}
	for _, lid := range reg.LocationIDs() {
		if err := w.MoveLocation(lid, parent); err != nil {
			return err
		}
	}
	children := reg.SubregionIDs()
	if err := w.Regions.Remove(id); err != nil {
		return err
	}
	if hasParent {
		for _, child := range children {
			if err := w.Regions.AddSubregion(parent, child); err != nil {
				return err
			}
		}
	}
	return nil
}

// StartLocation returns the arrival point: Start when it resolves, else the
// lowest-numbered location.
func (w *World) StartLocation() (*Location, bool) {
	if loc, ok := w.Locations.Get(w.Start); ok {
		return loc, true
	}
	all := w.Locations.All()
	if len(all) == 0 {
		return nil, false
	}
	return all[0], true
}

// ClearOccupants empties every location's occupant list. Servers call it
// after loading a stored world, since no stored character is connected yet.
//
// Postcondition: Returns how many occupants were dropped.
func (w *World) ClearOccupants() int {
	dropped := 0
	for _, loc := range w.Locations.All() {
		dropped += len(loc.occupants)
		loc.occupants = nil
	}
	return dropped
}

// Validate checks every graph and hierarchy invariant.
//
// Postcondition: Returns nil if the world is consistent, or an error joining
// every violation found.
func (w *World) Validate() error {
	var errs []error

	for _, loc := range w.Locations.All() {
		reg, ok := w.Regions.Get(loc.region)
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("location %d: owning region %d: %w", loc.id, loc.region, ErrRegionNotFound))
		case !reg.HasLocation(loc.id):
			errs = append(errs, fmt.Errorf("location %d: region %d does not list it", loc.id, loc.region))
		}
		seen := make(map[LocationID]bool, len(loc.neighbors))
		for _, n := range loc.neighbors {
			if n == loc.id {
				errs = append(errs, fmt.Errorf("location %d: %w", loc.id, ErrSelfEdge))
				continue
			}
			if seen[n] {
				errs = append(errs, fmt.Errorf("location %d: duplicate neighbor %d", loc.id, n))
			}
			seen[n] = true
			other, ok := w.Locations.Get(n)
			if !ok {
				errs = append(errs, fmt.Errorf("location %d: neighbor %d: %w", loc.id, n, ErrLocationNotFound))
				continue
			}
			if !other.HasNeighbor(loc.id) {
				errs = append(errs, fmt.Errorf("location %d: edge to %d is not symmetric", loc.id, n))
			}
		}
	}

	for _, reg := range w.Regions.All() {
		if reg.parent != NoRegion {
			p, ok := w.Regions.Get(reg.parent)
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("region %d: parent %d: %w", reg.id, reg.parent, ErrRegionNotFound))
			case !p.HasSubregion(reg.id):
				errs = append(errs, fmt.Errorf("region %d: parent %d does not list it", reg.id, reg.parent))
			}
			if w.hasParentCycle(reg.id) {
				errs = append(errs, fmt.Errorf("region %d: %w", reg.id, ErrRegionCycle))
			}
		}
		for _, child := range reg.SubregionIDs() {
			c, ok := w.Regions.Get(child)
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("region %d: subregion %d: %w", reg.id, child, ErrRegionNotFound))
			case c.parent != reg.id:
				errs = append(errs, fmt.Errorf("region %d: subregion %d names parent %d", reg.id, child, c.parent))
			}
		}
		for _, lid := range reg.LocationIDs() {
			loc, ok := w.Locations.Get(lid)
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("region %d: location %d: %w", reg.id, lid, ErrLocationNotFound))
			case loc.region != reg.id:
				errs = append(errs, fmt.Errorf("region %d: location %d is owned by region %d", reg.id, lid, loc.region))
			}
		}
	}

	if w.Start != 0 {
		if _, ok := w.Locations.Get(w.Start); !ok {
			errs = append(errs, fmt.Errorf("start location %d: %w", w.Start, ErrLocationNotFound))
		}
	}

	return errors.Join(errs...)
}

// hasParentCycle walks the parent chain from id and reports whether it revisits a region.
func (w *World) hasParentCycle(id RegionID) bool {
	seen := map[RegionID]bool{id: true}
	cur, ok := w.Regions.Get(id)
	for ok && cur.parent != NoRegion {
		if seen[cur.parent] {
			return true
		}
		seen[cur.parent] = true
		cur, ok = w.Regions.Get(cur.parent)
	}
	return false
}

package world

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// yamlSnapshotFile is the top-level YAML structure of a world snapshot.
type yamlSnapshotFile struct {
	World *yamlWorld `yaml:"world"`
}

// yamlWorld mirrors World field for field. Required fields are pointers so a
// missing key can be told apart from a zero value.
type yamlWorld struct {
	ID        *string        `yaml:"id"`
	Start     int64          `yaml:"start,omitempty"`
	TopLevel  int64          `yaml:"top_level_region,omitempty"`
	Regions   []yamlRegion   `yaml:"regions"`
	Locations []yamlLocation `yaml:"locations"`
}

type yamlRegion struct {
	ID         *int64   `yaml:"id"`
	Type       *string  `yaml:"type"`
	Name       string   `yaml:"name,omitempty"`
	Parent     int64    `yaml:"parent,omitempty"`
	Locations  *[]int64 `yaml:"locations"`
	Subregions *[]int64 `yaml:"subregions"`
}

type yamlLocation struct {
	ID                 *int64   `yaml:"id"`
	Type               *string  `yaml:"type"`
	Description        *string  `yaml:"description"`
	Discovered         *bool    `yaml:"discovered"`
	NeighborsGenerated *bool    `yaml:"neighbors_generated"`
	Neighbors          *[]int64 `yaml:"neighbors"`
	Region             *int64   `yaml:"region"`
	Occupants          []int64  `yaml:"occupants,omitempty"`
}

// LoadSnapshot reads and validates a world snapshot YAML file.
//
// Precondition: path must point to a snapshot written by SaveSnapshot or by hand
// following the same schema.
// Postcondition: Returns a validated World or a non-nil error.
func LoadSnapshot(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading world snapshot %s: %w", path, err)
	}
	return LoadSnapshotFromBytes(data)
}

// LoadSnapshotFromBytes parses and validates a world snapshot. Every required
// field must be present; nothing is defaulted.
//
// Postcondition: Returns a validated World or a non-nil error naming the first
// missing field or every invariant violation.
func LoadSnapshotFromBytes(data []byte) (*World, error) {
	var file yamlSnapshotFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing world snapshot YAML: %w", err)
	}
	if file.World == nil {
		return nil, errors.New("world snapshot: missing required field \"world\"")
	}

	w, err := convertYAMLWorld(*file.World)
	if err != nil {
		return nil, fmt.Errorf("world snapshot: %w", err)
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("validating world snapshot: %w", err)
	}
	return w, nil
}

// SaveSnapshot writes the world to path as YAML, creating parent directories.
// The file is written to a temporary sibling and renamed into place.
func SaveSnapshot(w *World, path string) error {
	data, err := MarshalSnapshot(w)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing world snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing world snapshot: %w", err)
	}
	return nil
}

// MarshalSnapshot encodes the world as snapshot YAML.
func MarshalSnapshot(w *World) ([]byte, error) {
	id := w.ID.String()
	yw := yamlWorld{
		ID:    &id,
		Start: int64(w.Start),
	}
	if top, ok := w.Regions.TopLevel(); ok {
		yw.TopLevel = int64(top.id)
	}
	for _, reg := range w.Regions.All() {
		rid := int64(reg.id)
		typ := reg.typ
		locs := toInt64s(reg.LocationIDs())
		subs := toInt64s(reg.SubregionIDs())
		yw.Regions = append(yw.Regions, yamlRegion{
			ID:         &rid,
			Type:       &typ,
			Name:       reg.name,
			Parent:     int64(reg.parent),
			Locations:  &locs,
			Subregions: &subs,
		})
	}
	for _, loc := range w.Locations.All() {
		lid := int64(loc.id)
		typ := loc.typ
		desc := loc.description
		disc := loc.discovered
		gen := loc.neighborsGenerated
		neighbors := toInt64s(loc.neighbors)
		region := int64(loc.region)
		yw.Locations = append(yw.Locations, yamlLocation{
			ID:                 &lid,
			Type:               &typ,
			Description:        &desc,
			Discovered:         &disc,
			NeighborsGenerated: &gen,
			Neighbors:          &neighbors,
			Region:             &region,
			Occupants:          loc.Occupants(),
		})
	}

	data, err := yaml.Marshal(yamlSnapshotFile{World: &yw})
	if err != nil {
		return nil, fmt.Errorf("encoding world snapshot: %w", err)
	}
	return data, nil
}

// convertYAMLWorld converts the parsed YAML structures into a World.
func convertYAMLWorld(yw yamlWorld) (*World, error) {
	if yw.ID == nil {
		return nil, missing("world", "id")
	}
	id, err := uuid.Parse(*yw.ID)
	if err != nil {
		return nil, fmt.Errorf("world id %q: %w", *yw.ID, err)
	}

	w := &World{
		ID:        id,
		Locations: NewLocationRegistry(),
		Regions:   NewRegionRegistry(),
		Start:     LocationID(yw.Start),
	}

	for i, yr := range yw.Regions {
		where := fmt.Sprintf("regions[%d]", i)
		switch {
		case yr.ID == nil:
			return nil, missing(where, "id")
		case yr.Type == nil:
			return nil, missing(where, "type")
		case yr.Locations == nil:
			return nil, missing(where, "locations")
		case yr.Subregions == nil:
			return nil, missing(where, "subregions")
		}
		reg := newRegion(RegionID(*yr.ID), *yr.Type, yr.Name)
		reg.parent = RegionID(yr.Parent)
		for _, l := range *yr.Locations {
			reg.locations[LocationID(l)] = struct{}{}
		}
		for _, s := range *yr.Subregions {
			reg.subregions[RegionID(s)] = struct{}{}
		}
		if err := w.Regions.restore(reg); err != nil {
			return nil, fmt.Errorf("%s: %w", where, err)
		}
	}

	for i, yl := range yw.Locations {
		where := fmt.Sprintf("locations[%d]", i)
		switch {
		case yl.ID == nil:
			return nil, missing(where, "id")
		case yl.Type == nil:
			return nil, missing(where, "type")
		case yl.Description == nil:
			return nil, missing(where, "description")
		case yl.Discovered == nil:
			return nil, missing(where, "discovered")
		case yl.NeighborsGenerated == nil:
			return nil, missing(where, "neighbors_generated")
		case yl.Neighbors == nil:
			return nil, missing(where, "neighbors")
		case yl.Region == nil:
			return nil, missing(where, "region")
		}
		loc := &Location{
			id:                 LocationID(*yl.ID),
			typ:                *yl.Type,
			description:        *yl.Description,
			discovered:         *yl.Discovered,
			neighborsGenerated: *yl.NeighborsGenerated,
			region:             RegionID(*yl.Region),
			occupants:          yl.Occupants,
		}
		for _, n := range *yl.Neighbors {
			loc.neighbors = append(loc.neighbors, LocationID(n))
		}
		if err := w.Locations.restore(loc); err != nil {
			return nil, fmt.Errorf("%s: %w", where, err)
		}
	}

	w.Regions.topLevel = RegionID(yw.TopLevel)
	if _, ok := w.Regions.Get(w.Regions.topLevel); !ok {
		w.Regions.rescanTopLevel()
	}
	return w, nil
}

func missing(where, field string) error {
	return fmt.Errorf("%s: missing required field %q", where, field)
}

func toInt64s[T ~int64](ids []T) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

// Package worldgen seeds a world graph: one continent, a territory and capital
// per faction, settlements around each capital, and a connected road network
// between the capitals.
package worldgen

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hinterland/internal/game/dice"
	"github.com/cory-johannsen/hinterland/internal/game/world"
)

// SettlementTypes are the region and location types of generated settlements.
var SettlementTypes = []string{"town", "village", "hamlet", "settlement", "outpost"}

// DefaultSettlements yields two to four settlements per territory.
var DefaultSettlements = dice.MustParse("1d3+1")

// Region and location type labels written by the generator.
const (
	ContinentType = "continent"
	ContinentName = "Continent"
	TerritoryType = "territory"
	CapitalType   = "capital"
)

// Result lists what Generate created.
type Result struct {
	Continent   world.RegionID
	Territories []world.RegionID
	Capitals    []world.LocationID
	Settlements []world.LocationID
}

// Generator builds the initial world graph.
type Generator struct {
	roller        *dice.Roller
	settlements   *dice.Expression
	continentType string
	logger        *zap.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithSettlements sets the per-territory settlement count expression.
func WithSettlements(expr dice.Expression) Option {
	return func(g *Generator) { g.settlements = &expr }
}

// WithContinentType sets the type of the top-level region. Empty keeps ContinentType.
func WithContinentType(typ string) Option {
	return func(g *Generator) {
		if typ != "" {
			g.continentType = typ
		}
	}
}

// WithoutSettlements disables settlement generation.
func WithoutSettlements() Option {
	return func(g *Generator) { g.settlements = nil }
}

// NewGenerator creates a Generator that rolls settlements with DefaultSettlements
// unless an option says otherwise.
//
// Precondition: roller and logger must be non-nil.
func NewGenerator(roller *dice.Roller, logger *zap.Logger, opts ...Option) *Generator {
	def := DefaultSettlements
	g := &Generator{roller: roller, settlements: &def, continentType: ContinentType, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate populates w with a continent holding one territory per faction.
// Each territory owns a capital; the capitals are joined by a random spanning
// tree plus up to floor(N/2) extra edges, and each capital is the hub of a
// star of settlements. w.Start is set to the first capital.
//
// Precondition: w must be non-nil; it is normally empty.
// Postcondition: Every capital is reachable from every other capital.
func (g *Generator) Generate(w *world.World, factions []Faction) (Result, error) {
	continent, err := w.AddRegion(g.continentType, ContinentName, world.NoRegion)
	if err != nil {
		return Result{}, fmt.Errorf("creating continent: %w", err)
	}
	res := Result{Continent: continent.ID()}

	for _, f := range factions {
		territory, err := w.AddRegion(TerritoryType, f.Name, continent.ID())
		if err != nil {
			return Result{}, fmt.Errorf("creating territory for %s: %w", f.Name, err)
		}
		capital, err := w.AddLocation(CapitalType, fmt.Sprintf("The capital city of %s.", f.Name), territory.ID())
		if err != nil {
			return Result{}, fmt.Errorf("creating capital of %s: %w", f.Name, err)
		}
		res.Territories = append(res.Territories, territory.ID())
		res.Capitals = append(res.Capitals, capital.ID())

		settlements, err := g.generateSettlements(w, territory.ID(), capital.ID(), f)
		if err != nil {
			return Result{}, err
		}
		res.Settlements = append(res.Settlements, settlements...)
	}

	edges, err := ConnectSpanning(w, res.Capitals, g.roller.Source())
	if err != nil {
		return Result{}, fmt.Errorf("connecting capitals: %w", err)
	}
	if len(res.Capitals) > 0 {
		w.Start = res.Capitals[0]
	}

	g.logger.Info("world generated",
		zap.Int("factions", len(factions)),
		zap.Int("capitals", len(res.Capitals)),
		zap.Int("settlements", len(res.Settlements)),
		zap.Int("roads", edges),
	)
	return res, nil
}

// generateSettlements creates the settlement regions of one territory, each
// with a single location linked to the capital.
func (g *Generator) generateSettlements(w *world.World, territory world.RegionID, capital world.LocationID, f Faction) ([]world.LocationID, error) {
	if g.settlements == nil {
		return nil, nil
	}
	n := g.roller.Roll("settlements:"+f.Name, *g.settlements)
	out := make([]world.LocationID, 0, max(n, 0))
	for i := 1; i <= n; i++ {
		typ := dice.Pick(g.roller.Source(), SettlementTypes)
		region, err := w.AddRegion(typ, fmt.Sprintf("%s %s %d", f.Race, typ, i), territory)
		if err != nil {
			return nil, fmt.Errorf("creating %s in %s: %w", typ, f.Name, err)
		}
		loc, err := w.AddLocation(typ, fmt.Sprintf("A %s in the territory of %s.", typ, f.Name), region.ID())
		if err != nil {
			return nil, fmt.Errorf("creating %s location in %s: %w", typ, f.Name, err)
		}
		if _, err := w.Connect(loc.ID(), capital); err != nil {
			return nil, fmt.Errorf("linking %s to capital of %s: %w", typ, f.Name, err)
		}
		out = append(out, loc.ID())
	}
	return out, nil
}

// ConnectSpanning joins ids into one connected component. It grows a random
// spanning tree (each newly drawn location links to a random already-connected
// one), then makes floor(len(ids)/2) attempts at an extra edge between two
// random locations, skipping attempts that draw the same location twice or an
// existing edge.
//
// Postcondition: Returns the number of edges created; at least len(ids)-1 when
// the locations started out unconnected.
func ConnectSpanning(w *world.World, ids []world.LocationID, src dice.Source) (int, error) {
	if len(ids) < 2 {
		return 0, nil
	}
	unconnected := append([]world.LocationID(nil), ids...)
	connected := make([]world.LocationID, 0, len(ids))

	i := src.Intn(len(unconnected))
	connected = append(connected, unconnected[i])
	unconnected = append(unconnected[:i], unconnected[i+1:]...)

	edges := 0
	for len(unconnected) > 0 {
		i := src.Intn(len(unconnected))
		next := unconnected[i]
		unconnected = append(unconnected[:i], unconnected[i+1:]...)
		target := dice.Pick(src, connected)
		created, err := w.Connect(next, target)
		if err != nil {
			return edges, err
		}
		if created {
			edges++
		}
		connected = append(connected, next)
	}

	for range len(ids) / 2 {
		a := dice.Pick(src, ids)
		b := dice.Pick(src, ids)
		if a == b {
			continue
		}
		created, err := w.Connect(a, b)
		if err != nil {
			return edges, err
		}
		if created {
			edges++
		}
	}
	return edges, nil
}

// Package explore implements lazy world expansion: describing a location the
// first time a player arrives, and generating new neighbors the first time a
// player looks around.
//
// Each location moves independently along two axes, undiscovered -> discovered
// and neighbors-ungenerated -> neighbors-generated. A flag is only advanced
// when its work completed; a narrator failure leaves the location retryable.
package explore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hinterland/internal/game/suggest"
	"github.com/cory-johannsen/hinterland/internal/game/world"
	"github.com/cory-johannsen/hinterland/internal/narrator"
)

// Narrator request purposes reported to the Observer.
const (
	PurposeDescribe = "describe"
	PurposeExpand   = "expand"
)

// SourceExpansion labels locations created by the expansion step.
const SourceExpansion = "expansion"

// Observer receives engine events. observability.Metrics implements it.
type Observer interface {
	NarratorRequest(purpose string, elapsed time.Duration, err error)
	LocationsCreated(source string, n int)
	Discovered()
	Expanded(err error)
}

type nopObserver struct{}

func (nopObserver) NarratorRequest(string, time.Duration, error) {}
func (nopObserver) LocationsCreated(string, int) {}
func (nopObserver) Discovered() {}
func (nopObserver) Expanded(error) {}

// Cursor is one character's position in the world.
type Cursor struct {
	Location    world.LocationID
	CharacterID int64
}

// Engine drives exploration of one world. Every exported method holds the
// engine's mutex for its whole duration, narrator calls included, so two
// players looking around the same location can never both expand it.
type Engine struct {
	mu       sync.Mutex
	world    *world.World
	narrator narrator.Narrator
	observer Observer
	logger   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver reports engine events to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// NewEngine creates an Engine over w.
//
// Precondition: w, n, and logger must be non-nil. After this call, w must only
// be accessed through the engine (see WithWorld).
func NewEngine(w *world.World, n narrator.Narrator, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{world: w, narrator: n, observer: nopObserver{}, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithWorld runs fn with exclusive access to the world, e.g. to save it.
func (e *Engine) WithWorld(fn func(*world.World) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.world)
}

// Spawn places a character at the world's start location.
//
// Postcondition: Returns a cursor at the start location, with the character
// recorded as an occupant, or ErrLocationNotFound when the world is empty.
func (e *Engine) Spawn(characterID int64) (Cursor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	start, ok := e.world.StartLocation()
	if !ok {
		return Cursor{}, fmt.Errorf("spawning character %d: %w", characterID, world.ErrLocationNotFound)
	}
	if err := e.world.Locations.AddOccupant(start.ID(), characterID); err != nil {
		return Cursor{}, err
	}
	return Cursor{Location: start.ID(), CharacterID: characterID}, nil
}

// Leave removes the character from its location's occupants.
func (e *Engine) Leave(cur Cursor) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.world.Locations.RemoveOccupant(cur.Location, cur.CharacterID)
}

// Discover runs the arrival transition for a location: when it is undiscovered,
// ask the narrator for a description, store it, and mark it discovered.
//
// Postcondition: Returns nil with the location discovered, or an error with the
// location unchanged. Already-discovered locations are never re-described.
func (e *Engine) Discover(ctx context.Context, id world.LocationID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	loc, ok := e.world.Locations.Get(id)
	if !ok {
		return fmt.Errorf("discovering %d: %w", id, world.ErrLocationNotFound)
	}
	return e.discover(ctx, loc)
}

func (e *Engine) discover(ctx context.Context, loc *world.Location) error {
	if loc.Discovered() {
		return nil
	}
	text, err := e.request(ctx, PurposeDescribe, DescribePrompt(loc.Type()))
	if err != nil {
		return fmt.Errorf("discovering %d (%s): %w", loc.ID(), loc.Type(), err)
	}
	loc.SetDescription(text)
	loc.MarkDiscovered()
	e.observer.Discovered()
	e.logger.Info("location discovered",
		zap.Int64("location_id", int64(loc.ID())),
		zap.String("type", loc.Type()),
	)
	return nil
}

// Expand runs the look transition for a location: when its neighbors have not
// been generated, ask the narrator for nearby location types and attach every
// suggestion that does not already match a neighbor as a new undiscovered
// location in the same region.
//
// Postcondition: On success NeighborsGenerated() is true and the new locations
// are returned, possibly none. On error the flag is unchanged.
func (e *Engine) Expand(ctx context.Context, id world.LocationID) ([]*world.Location, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	loc, ok := e.world.Locations.Get(id)
	if !ok {
		return nil, fmt.Errorf("expanding %d: %w", id, world.ErrLocationNotFound)
	}
	return e.expand(ctx, loc)
}

func (e *Engine) expand(ctx context.Context, loc *world.Location) ([]*world.Location, error) {
	if loc.NeighborsGenerated() {
		return nil, nil
	}
	prompt := NearbyPrompt(loc, e.world.Locations.Neighbors(loc.ID()))
	text, err := e.request(ctx, PurposeExpand, prompt)
	if err != nil {
		e.observer.Expanded(err)
		return nil, fmt.Errorf("expanding %d (%s): %w", loc.ID(), loc.Type(), err)
	}

	suggestions := suggest.Canonicalize(text)
	var created []*world.Location
	for _, typ := range suggestions {
		if loc.Matches(typ) {
			continue
		}
		if _, exists := e.world.Locations.FindConnectionTo(loc.ID(), typ); exists {
			continue
		}
		n, err := e.world.AddLocation(typ, PlaceholderDescription, loc.RegionID())
		if err == nil {
			_, err = e.world.Connect(loc.ID(), n.ID())
		}
		if err != nil {
			e.observer.LocationsCreated(SourceExpansion, len(created))
			e.observer.Expanded(err)
			return created, fmt.Errorf("expanding %d (%s): adding %q: %w", loc.ID(), loc.Type(), typ, err)
		}
		created = append(created, n)
	}
	loc.MarkNeighborsGenerated()

	e.observer.LocationsCreated(SourceExpansion, len(created))
	e.observer.Expanded(nil)
	e.logger.Info("location expanded",
		zap.Int64("location_id", int64(loc.ID())),
		zap.String("type", loc.Type()),
		zap.Strings("suggestions", suggestions),
		zap.Int("created", len(created)),
	)
	return created, nil
}

// request calls the narrator, treating blank output as a failure.
func (e *Engine) request(ctx context.Context, purpose, prompt string) (string, error) {
	start := time.Now()
	text, err := e.narrator.Request(ctx, prompt)
	if err == nil && strings.TrimSpace(text) == "" {
		err = narrator.ErrEmptyResponse
	}
	elapsed := time.Since(start)
	e.observer.NarratorRequest(purpose, elapsed, err)
	if err != nil {
		e.logger.Warn("narrator request failed",
			zap.String("purpose", purpose),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return "", err
	}
	e.logger.Debug("narrator request",
		zap.String("purpose", purpose),
		zap.Duration("elapsed", elapsed),
		zap.Int("length", len(text)),
	)
	return strings.TrimSpace(text), nil
}

// AttemptMove moves the cursor to the neighbor matching target (see
// world.Location.Matches) and discovers it if needed. A failed discovery
// does not block the move; the destination stays undiscovered and is
// described on a later arrival.
//
// Postcondition: Returns true with cur updated and the character's occupancy
// moved, or false with nothing changed when no neighbor matches. Returns an
// error only when the cursor's own location does not exist.
func (e *Engine) AttemptMove(ctx context.Context, cur *Cursor, target string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.world.Locations.Get(cur.Location); !ok {
		return false, fmt.Errorf("moving from %d: %w", cur.Location, world.ErrLocationNotFound)
	}
	dest, ok := e.world.Locations.FindConnectionTo(cur.Location, strings.TrimSpace(target))
	if !ok {
		return false, nil
	}
	if err := e.discover(ctx, dest); err != nil {
		e.logger.Warn("arrived at an undescribed location", zap.Error(err))
	}
	if err := e.world.Locations.RemoveOccupant(cur.Location, cur.CharacterID); err != nil {
		return false, err
	}
	if err := e.world.Locations.AddOccupant(dest.ID(), cur.CharacterID); err != nil {
		return false, err
	}
	cur.Location = dest.ID()
	return true, nil
}

// LookAround reports what is around the cursor. The first look at a location
// expands it and reports the places noticed; later looks list every neighbor,
// with its description once discovered.
//
// Postcondition: Returns the text to show, or an error when the location does
// not exist or expansion failed (the next look retries).
func (e *Engine) LookAround(ctx context.Context, cur Cursor) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	loc, ok := e.world.Locations.Get(cur.Location)
	if !ok {
		return "", fmt.Errorf("looking around %d: %w", cur.Location, world.ErrLocationNotFound)
	}

	var sb strings.Builder
	if loc.NeighborsGenerated() {
		sb.WriteString("You look around and see the following places:\n")
		for _, n := range e.world.Locations.Neighbors(loc.ID()) {
			if n.Discovered() {
				fmt.Fprintf(&sb, " - %s: %s\n", n.FallbackLabel(), n.Description())
			} else {
				fmt.Fprintf(&sb, " - %s (undiscovered)\n", n.FallbackLabel())
			}
		}
		return strings.TrimSpace(sb.String()), nil
	}

	created, err := e.expand(ctx, loc)
	for _, n := range created {
		fmt.Fprintf(&sb, "You notice a new place: \"%s\" (undiscovered)\n", n.Type())
	}
	if err != nil {
		return strings.TrimSpace(sb.String()), err
	}
	if len(created) == 0 {
		return "You notice nothing new.", nil
	}
	return strings.TrimSpace(sb.String()), nil
}

// DescribeCurrent renders the cursor's location: a header with its label, its
// description, and its exits.
func (e *Engine) DescribeCurrent(cur Cursor) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	loc, ok := e.world.Locations.Get(cur.Location)
	if !ok {
		return "Unknown location."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== %s ===\n", loc.FallbackLabel())
	sb.WriteString(loc.Description() + "\n")
	sb.WriteString("Exits:\n")
	for _, n := range e.world.Locations.Neighbors(loc.ID()) {
		fmt.Fprintf(&sb, " - %s\n", n.FallbackLabel())
	}
	return strings.TrimSpace(sb.String())
}

// Exits returns the labels of the cursor location's neighbors in edge order.
func (e *Engine) Exits(cur Cursor) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, n := range e.world.Locations.Neighbors(cur.Location) {
		out = append(out, n.FallbackLabel())
	}
	return out
}

// Occupants returns the characters at the cursor's location other than the
// cursor's own character.
func (e *Engine) Occupants(cur Cursor) []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	loc, ok := e.world.Locations.Get(cur.Location)
	if !ok {
		return nil
	}
	var out []int64
	for _, id := range loc.Occupants() {
		if id != cur.CharacterID {
			out = append(out, id)
		}
	}
	return out
}

// LocationType returns the type of the cursor's location.
func (e *Engine) LocationType(cur Cursor) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	loc, ok := e.world.Locations.Get(cur.Location)
	if !ok {
		return "", false
	}
	return loc.Type(), true
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/hinterland/internal/game/world"
)

// ErrWorldNotFound is returned when no world is stored under a name.
var ErrWorldNotFound = errors.New("world not found")

// WorldSummary describes a stored world without loading it.
type WorldSummary struct {
	Name       string
	WorldID    uuid.UUID
	Locations  int
	Regions    int
	Discovered int
	SavedAt    time.Time
}

// WorldRepository stores whole worlds by name. Each save writes the world's
// snapshot document and replaces its per-location index rows in one
// transaction.
type WorldRepository struct {
	db *pgxpool.Pool
}

// NewWorldRepository creates a WorldRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewWorldRepository(db *pgxpool.Pool) *WorldRepository {
	return &WorldRepository{db: db}
}

// Save stores w under name, replacing any world previously stored there.
//
// Precondition: name must be non-empty; w must be non-nil.
// Postcondition: Load(name) returns a world equal to w, or an error is
// returned and the previous contents are unchanged.
func (r *WorldRepository) Save(ctx context.Context, name string, w *world.World) error {
	if name == "" {
		return errors.New("world name must not be empty")
	}
	snapshot, err := world.MarshalSnapshot(w)
	if err != nil {
		return err
	}
	locations := w.Locations.All()
	discovered := 0
	for _, loc := range locations {
		if loc.Discovered() {
			discovered++
		}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO worlds (name, world_id, snapshot, location_count, region_count, discovered_count, saved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 ON CONFLICT (name) DO UPDATE SET
		   world_id = EXCLUDED.world_id,
		   snapshot = EXCLUDED.snapshot,
		   location_count = EXCLUDED.location_count,
		   region_count = EXCLUDED.region_count,
		   discovered_count = EXCLUDED.discovered_count,
		   saved_at = EXCLUDED.saved_at`,
		name, w.ID, string(snapshot), len(locations), w.Regions.Len(), discovered,
	)
	if err != nil {
		return fmt.Errorf("upserting world %s: %w", name, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM world_locations WHERE world_name = $1`, name); err != nil {
		return fmt.Errorf("clearing locations of %s: %w", name, err)
	}
	rows := make([][]any, 0, len(locations))
	for _, loc := range locations {
		rows = append(rows, []any{
			name, int64(loc.ID()), loc.Type(), loc.Description(),
			loc.Discovered(), loc.NeighborsGenerated(), int64(loc.RegionID()),
		})
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"world_locations"},
		[]string{"world_name", "location_id", "type", "description", "discovered", "neighbors_generated", "region_id"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copying locations of %s: %w", name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing world %s: %w", name, err)
	}
	return nil
}

// Load returns the world stored under name.
//
// Postcondition: Returns a validated World, or ErrWorldNotFound.
func (r *WorldRepository) Load(ctx context.Context, name string) (*world.World, error) {
	var snapshot string
	err := r.db.QueryRow(ctx, `SELECT snapshot FROM worlds WHERE name = $1`, name).Scan(&snapshot)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", name, ErrWorldNotFound)
		}
		return nil, fmt.Errorf("querying world %s: %w", name, err)
	}
	w, err := world.LoadSnapshotFromBytes([]byte(snapshot))
	if err != nil {
		return nil, fmt.Errorf("decoding world %s: %w", name, err)
	}
	return w, nil
}

// List returns a summary of every stored world ordered by name.
func (r *WorldRepository) List(ctx context.Context) ([]WorldSummary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name, world_id, location_count, region_count, discovered_count, saved_at
		 FROM worlds ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing worlds: %w", err)
	}
	defer rows.Close()

	var out []WorldSummary
	for rows.Next() {
		var s WorldSummary
		if err := rows.Scan(&s.Name, &s.WorldID, &s.Locations, &s.Regions, &s.Discovered, &s.SavedAt); err != nil {
			return nil, fmt.Errorf("scanning world summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LocationsOfType returns the ids of the locations of a stored world whose
// type is typ, in id order.
func (r *WorldRepository) LocationsOfType(ctx context.Context, name, typ string) ([]world.LocationID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT location_id FROM world_locations
		 WHERE world_name = $1 AND type = $2 ORDER BY location_id`,
		name, typ,
	)
	if err != nil {
		return nil, fmt.Errorf("querying locations of %s: %w", name, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collecting locations of %s: %w", name, err)
	}
	out := make([]world.LocationID, len(ids))
	for i, id := range ids {
		out[i] = world.LocationID(id)
	}
	return out, nil
}

// Delete removes the world stored under name.
//
// Postcondition: Returns ErrWorldNotFound when nothing was stored there.
func (r *WorldRepository) Delete(ctx context.Context, name string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM worlds WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("deleting world %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", name, ErrWorldNotFound)
	}
	return nil
}

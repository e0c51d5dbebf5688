// Package storage selects where the world graph is persisted and seeds a
// fresh world when none has been stored yet.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hinterland/internal/config"
	"github.com/cory-johannsen/hinterland/internal/game/dice"
	"github.com/cory-johannsen/hinterland/internal/game/world"
	"github.com/cory-johannsen/hinterland/internal/game/worldgen"
	"github.com/cory-johannsen/hinterland/internal/storage/postgres"
)

// ErrNoWorld is returned by Store.Load when nothing has been saved yet.
var ErrNoWorld = errors.New("no stored world")

// Store loads and saves one world.
type Store interface {
	Load(ctx context.Context) (*world.World, error)
	Save(ctx context.Context, w *world.World) error
}

// FileStore keeps the world as a YAML snapshot file.
type FileStore struct {
	Path string
}

// Load reads the snapshot, returning ErrNoWorld when the file does not exist.
func (s FileStore) Load(_ context.Context) (*world.World, error) {
	w, err := world.LoadSnapshot(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", s.Path, ErrNoWorld)
	}
	return w, err
}

// Save writes the snapshot.
func (s FileStore) Save(_ context.Context, w *world.World) error {
	return world.SaveSnapshot(w, s.Path)
}

// PostgresStore keeps the world in a WorldRepository under Name.
type PostgresStore struct {
	Repo *postgres.WorldRepository
	Name string
}

// Load reads the named world, returning ErrNoWorld when it is not stored.
func (s PostgresStore) Load(ctx context.Context) (*world.World, error) {
	w, err := s.Repo.Load(ctx, s.Name)
	if errors.Is(err, postgres.ErrWorldNotFound) {
		return nil, fmt.Errorf("%s: %w", s.Name, ErrNoWorld)
	}
	return w, err
}

// Save replaces the named world.
func (s PostgresStore) Save(ctx context.Context, w *world.World) error {
	return s.Repo.Save(ctx, s.Name, w)
}

// Open returns the Store selected by cfg.World.Store. The returned close
// function releases the database pool, if one was opened.
//
// Postcondition: Returns a usable Store and a non-nil close function, or an error.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (Store, func(), error) {
	switch cfg.World.Store {
	case "file":
		return FileStore{Path: cfg.World.SnapshotPath}, func() {}, nil
	case "postgres":
		start := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.String("database", cfg.Database.Name),
			zap.Duration("elapsed", time.Since(start)),
		)
		return PostgresStore{Repo: postgres.NewWorldRepository(pool.DB()), Name: cfg.World.Name}, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown world store %q", cfg.World.Store)
	}
}

// Generate seeds a fresh world from cfg: factions rolled per race, then a
// continent of territories, capitals, and settlements.
//
// Precondition: cfg must have passed config validation.
func Generate(cfg config.WorldConfig, logger *zap.Logger, extra ...worldgen.Option) (*world.World, worldgen.Result, error) {
	perRace, err := dice.Parse(cfg.StatesPerRace)
	if err != nil {
		return nil, worldgen.Result{}, fmt.Errorf("states per race: %w", err)
	}
	opts := []worldgen.Option{worldgen.WithoutSettlements()}
	if cfg.Settlements != "" {
		expr, err := dice.Parse(cfg.Settlements)
		if err != nil {
			return nil, worldgen.Result{}, fmt.Errorf("settlements: %w", err)
		}
		opts = []worldgen.Option{worldgen.WithSettlements(expr)}
	}

	opts = append(opts, extra...)

	src := dice.NewCryptoSource()
	if cfg.Seed != 0 {
		src = dice.NewSeededSource(cfg.Seed)
	}
	roller := dice.NewRoller(src, logger)

	w := world.New()
	factions := worldgen.GenerateFactions(cfg.Races, roller, perRace)
	res, err := worldgen.NewGenerator(roller, logger, opts...).Generate(w, factions)
	if err != nil {
		return nil, worldgen.Result{}, err
	}
	return w, res, nil
}

// LoadOrGenerate loads the stored world, or generates and saves a new one
// when the store is empty. The boolean reports whether a world was generated.
func LoadOrGenerate(ctx context.Context, store Store, cfg config.WorldConfig, logger *zap.Logger) (*world.World, bool, error) {
	w, err := store.Load(ctx)
	if err == nil {
		return w, false, nil
	}
	if !errors.Is(err, ErrNoWorld) {
		return nil, false, err
	}

	logger.Info("no stored world, generating", zap.Strings("races", cfg.Races))
	w, res, err := Generate(cfg, logger)
	if err != nil {
		return nil, false, fmt.Errorf("generating world: %w", err)
	}
	logger.Info("world generated",
		zap.Int("territories", len(res.Territories)),
		zap.Int("capitals", len(res.Capitals)),
		zap.Int("settlements", len(res.Settlements)),
		zap.Int("locations", w.Locations.Len()),
	)
	if err := store.Save(ctx, w); err != nil {
		return nil, false, fmt.Errorf("saving generated world: %w", err)
	}
	return w, true, nil
}

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/hinterland/internal/config"
	"github.com/cory-johannsen/hinterland/internal/game/world"
)

func testWorldConfig(path string) config.WorldConfig {
	return config.WorldConfig{
		Store:         "file",
		SnapshotPath:  path,
		Races:         []string{"human", "elf"},
		StatesPerRace: "1d2+1",
		Settlements:   "1d2",
		Seed:          42,
	}
}

func TestFileStore_LoadMissing(t *testing.T) {
	store := FileStore{Path: filepath.Join(t.TempDir(), "world.yaml")}
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoWorld)
}

func TestLoadOrGenerate_GeneratesThenLoads(t *testing.T) {
	ctx := context.Background()
	cfg := testWorldConfig(filepath.Join(t.TempDir(), "nested", "world.yaml"))
	store := FileStore{Path: cfg.SnapshotPath}
	logger := zaptest.NewLogger(t)

	first, generated, err := LoadOrGenerate(ctx, store, cfg, logger)
	require.NoError(t, err)
	assert.True(t, generated)
	require.NoError(t, first.Validate())
	assert.GreaterOrEqual(t, first.Locations.Len(), 4, "at least two capitals per race")

	second, generated, err := LoadOrGenerate(ctx, store, cfg, logger)
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Locations.Len(), second.Locations.Len())
	assert.Equal(t, first.Start, second.Start)
}

func TestGenerate_SeedIsReproducible(t *testing.T) {
	cfg := testWorldConfig("")
	logger := zaptest.NewLogger(t)

	a, _, err := Generate(cfg, logger)
	require.NoError(t, err)
	b, _, err := Generate(cfg, logger)
	require.NoError(t, err)

	require.Equal(t, a.Locations.Len(), b.Locations.Len())
	for _, loc := range a.Locations.All() {
		other, ok := b.Locations.Get(loc.ID())
		require.True(t, ok)
		assert.Equal(t, loc.Type(), other.Type())
		assert.Equal(t, loc.Neighbors(), other.Neighbors())
	}
}

func TestGenerate_WithoutSettlements(t *testing.T) {
	cfg := testWorldConfig("")
	cfg.Settlements = ""
	w, res, err := Generate(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Empty(t, res.Settlements)
	assert.Equal(t, len(res.Capitals), w.Locations.Len())
}

func TestGenerate_BadExpression(t *testing.T) {
	cfg := testWorldConfig("")
	cfg.StatesPerRace = "lots"
	_, _, err := Generate(cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

type failingStore struct{ err error }

func (s failingStore) Load(context.Context) (*world.World, error) { return nil, s.err }
func (s failingStore) Save(context.Context, *world.World) error  { return s.err }

func TestLoadOrGenerate_PropagatesLoadErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	_, _, err := LoadOrGenerate(context.Background(), failingStore{err: boom}, testWorldConfig(""), zaptest.NewLogger(t))
	assert.ErrorIs(t, err, boom)
}

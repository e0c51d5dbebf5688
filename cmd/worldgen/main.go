// Package main provides the world generator binary: it seeds a fresh world
// and writes it to a YAML snapshot and, optionally, to PostgreSQL. The -list,
// -delete and -locations flags inspect or remove worlds stored in PostgreSQL
// instead of generating one.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hinterland/internal/config"
	"github.com/cory-johannsen/hinterland/internal/game/explore"
	"github.com/cory-johannsen/hinterland/internal/game/worldgen"
	"github.com/cory-johannsen/hinterland/internal/narrator"
	"github.com/cory-johannsen/hinterland/internal/observability"
	"github.com/cory-johannsen/hinterland/internal/storage"
	"github.com/cory-johannsen/hinterland/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	out := flag.String("out", "", "snapshot path to write; defaults to world.snapshot_path")
	summary := flag.String("summary", "", "one-line world summary; the narrator infers the continent type from it")
	seed := flag.Uint64("seed", 0, "generation seed; 0 uses world.seed")
	toPostgres := flag.Bool("postgres", false, "also store the world in postgres under world.name")
	force := flag.Bool("force", false, "overwrite an existing snapshot")
	list := flag.Bool("list", false, "list the worlds stored in postgres and exit")
	deleteName := flag.String("delete", "", "delete the named world from postgres and exit")
	locationsOf := flag.String("locations", "", "print the ids of locations of this type in the stored world world.name and exit")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging, "worldgen")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	if *list || *deleteName != "" || *locationsOf != "" {
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		repo := postgres.NewWorldRepository(pool.DB())
		if err := manageStored(ctx, os.Stdout, repo, *list, *deleteName, cfg.World.Name, *locationsOf); err != nil {
			logger.Fatal("managing stored worlds", zap.Error(err))
		}
		return
	}

	if *seed != 0 {
		cfg.World.Seed = *seed
	}
	path := cfg.World.SnapshotPath
	if *out != "" {
		path = *out
	}
	if _, err := os.Stat(path); err == nil && !*force {
		logger.Fatal("snapshot already exists; pass -force to overwrite", zap.String("path", path))
	}

	var opts []worldgen.Option
	if *summary != "" {
		n, closeNarrator, err := narrator.FromConfig(cfg.Narrator, cfg.Cache, logger)
		if err != nil {
			logger.Fatal("configuring narrator", zap.Error(err))
		}
		typ, err := explore.InferRegionType(ctx, n, *summary)
		if err != nil {
			logger.Warn("keeping default continent type", zap.Error(err))
		} else {
			logger.Info("continent type inferred", zap.String("type", typ))
			opts = append(opts, worldgen.WithContinentType(typ))
		}
		_ = closeNarrator()
	}

	w, res, err := storage.Generate(cfg.World, logger, opts...)
	if err != nil {
		logger.Fatal("generating world", zap.Error(err))
	}
	if err := w.Validate(); err != nil {
		logger.Fatal("generated world failed validation", zap.Error(err))
	}

	if err := (storage.FileStore{Path: path}).Save(ctx, w); err != nil {
		logger.Fatal("writing snapshot", zap.Error(err))
	}
	if *toPostgres {
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		if err := postgres.NewWorldRepository(pool.DB()).Save(ctx, cfg.World.Name, w); err != nil {
			logger.Fatal("storing world", zap.Error(err))
		}
	}

	fmt.Fprintf(os.Stdout, "generated world %s: %d territories, %d capitals, %d settlements, %d locations -> %s [%s]\n",
		w.ID, len(res.Territories), len(res.Capitals), len(res.Settlements), w.Locations.Len(), path, time.Since(start))
}

// manageStored runs the requested maintenance operations against the stored
// worlds, writing results to out.
func manageStored(ctx context.Context, out io.Writer, repo *postgres.WorldRepository, list bool, deleteName, worldName, locationType string) error {
	if deleteName != "" {
		if err := repo.Delete(ctx, deleteName); err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted world %s\n", deleteName)
	}
	if list {
		worlds, err := repo.List(ctx)
		if err != nil {
			return err
		}
		for _, s := range worlds {
			fmt.Fprintf(out, "%s\t%s\t%d locations\t%d regions\t%d discovered\t%s\n",
				s.Name, s.WorldID, s.Locations, s.Regions, s.Discovered, s.SavedAt.Format(time.RFC3339))
		}
	}
	if locationType != "" {
		ids, err := repo.LocationsOfType(ctx, worldName, locationType)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(out, id)
		}
	}
	return nil
}

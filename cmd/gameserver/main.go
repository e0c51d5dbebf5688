// Package main provides the game server binary: it loads or generates the
// world, serves players over Telnet (server.mode "standalone") or one local
// player on stdin/stdout (server.mode "console"), and saves the world on
// shutdown.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cory-johannsen/hinterland/internal/config"
	"github.com/cory-johannsen/hinterland/internal/frontend/handlers"
	"github.com/cory-johannsen/hinterland/internal/frontend/telnet"
	"github.com/cory-johannsen/hinterland/internal/game/explore"
	"github.com/cory-johannsen/hinterland/internal/game/session"
	"github.com/cory-johannsen/hinterland/internal/game/world"
	"github.com/cory-johannsen/hinterland/internal/narrator"
	"github.com/cory-johannsen/hinterland/internal/observability"
	"github.com/cory-johannsen/hinterland/internal/server"
	"github.com/cory-johannsen/hinterland/internal/storage"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	autosave := flag.Duration("autosave", 5*time.Minute, "interval between world saves; 0 saves only on shutdown")
	color := flag.Bool("color", true, "send ANSI colors to clients")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "gameserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting game server",
		zap.String("mode", cfg.Server.Mode),
		zap.String("telnet_addr", cfg.Telnet.Addr()),
		zap.String("world_store", cfg.World.Store),
		zap.String("narrator", cfg.Narrator.Provider),
	)

	store, closeStore, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("opening world store", zap.Error(err))
	}
	defer closeStore()

	loadStart := time.Now()
	w, generated, err := storage.LoadOrGenerate(ctx, store, cfg.World, logger)
	if err != nil {
		logger.Fatal("loading world", zap.Error(err))
	}
	if err := w.Validate(); err != nil {
		logger.Fatal("world failed validation", zap.Error(err))
	}
	// Nobody is connected yet; occupants left by a crash are stale.
	if stale := w.ClearOccupants(); stale > 0 {
		logger.Warn("cleared stale occupants", zap.Int("count", stale))
	}
	logger.Info("world ready",
		zap.String("world_id", w.ID.String()),
		zap.Bool("generated", generated),
		zap.Int("locations", w.Locations.Len()),
		zap.Int("regions", w.Regions.Len()),
		zap.Duration("elapsed", time.Since(loadStart)),
	)

	n, closeNarrator, err := narrator.FromConfig(cfg.Narrator, cfg.Cache, logger)
	if err != nil {
		logger.Fatal("configuring narrator", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		logger.Fatal("registering metrics", zap.Error(err))
	}

	engine := explore.NewEngine(w, n, logger, explore.WithObserver(metrics))
	sessions := session.NewManager(1)
	gameHandler := handlers.NewGameHandler(engine, sessions, logger, *color)

	saveWorld := func() error {
		saveStart := time.Now()
		err := engine.WithWorld(func(w *world.World) error {
			return store.Save(context.Background(), w)
		})
		if err != nil {
			return err
		}
		logger.Info("world saved", zap.Duration("elapsed", time.Since(saveStart)))
		return nil
	}

	lifecycle := server.NewLifecycle(logger)
	switch cfg.Server.Mode {
	case "console":
		conn := handlers.NewStdioConn(os.Stdin, os.Stdout)
		lifecycle.Add("console", &server.FuncService{
			// The session ending shuts the server down.
			StartFn: func() error {
				defer cancel()
				return gameHandler.Serve(ctx, conn)
			},
			StopFn: func() {},
		})
	default:
		acceptor := telnet.NewAcceptor(cfg.Telnet, gameHandler, logger)
		lifecycle.Add("telnet", &server.FuncService{
			StartFn: acceptor.ListenAndServe,
			StopFn:  acceptor.Stop,
		})
	}
	if cfg.Metrics.Enabled {
		metricsServer := observability.NewMetricsServer(cfg.Metrics.Addr, registry, logger)
		lifecycle.Add("metrics", &server.FuncService{
			StartFn: metricsServer.Start,
			StopFn:  metricsServer.Stop,
		})
	}
	if *autosave > 0 {
		ticker := time.NewTicker(*autosave)
		done := make(chan struct{})
		lifecycle.Add("autosave", &server.FuncService{
			StartFn: func() error {
				for {
					select {
					case <-done:
						return nil
					case <-ticker.C:
						if err := saveWorld(); err != nil {
							logger.Error("autosave failed", zap.Error(err))
						}
					}
				}
			},
			StopFn: func() {
				ticker.Stop()
				close(done)
			},
		})
	}
	lifecycle.OnShutdown("save world", saveWorld)
	lifecycle.OnShutdown("close narrator", closeNarrator)

	logger.Info("game server initialized", zap.Duration("startup", time.Since(start)))
	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("game server stopped with errors", zap.Error(err))
	}
}

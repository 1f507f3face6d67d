package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/cameron-ship-it/Blocks-mapbox/internal/boundary"
	"github.com/cameron-ship-it/Blocks-mapbox/internal/config"
	"github.com/cameron-ship-it/Blocks-mapbox/internal/httpapi"
	"github.com/cameron-ship-it/Blocks-mapbox/internal/mapsurface"
	"github.com/cameron-ship-it/Blocks-mapbox/internal/mapsync"
	"github.com/cameron-ship-it/Blocks-mapbox/internal/metrics"
	"github.com/cameron-ship-it/Blocks-mapbox/internal/selection"
	"github.com/cameron-ship-it/Blocks-mapbox/internal/session"
	"github.com/cameron-ship-it/Blocks-mapbox/internal/wizard"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	logger := httpapi.NewLogger(cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Durable mode storage is optional; without redis the mode lives only
	// for the session.
	var modes selection.ModeStore
	if client := selection.OpenRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); client != nil {
		defer client.Close()
		modes = selection.NewRedisModeStore(client, "")
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("redis mode store enabled")
	} else {
		modes = selection.NewMemoryModeStore()
	}

	blocks := loadBlocks(logger, cfg.BlocksPath)

	catalog := boundary.NewCatalog()
	loadBoundaries(ctx, logger, cfg, catalog)

	registry := session.NewRegistry(logger, session.Options{TTL: cfg.Session.TTL}, func(ctx context.Context, id string) *session.Session {
		store := selection.NewStore(ctx, logger, modes, id)
		surface := mapsurface.NewDataset(logger, cfg.Map.Source, cfg.Map.SourceLayer, blocks)
		adapter := mapsync.New(logger, surface, store, m, mapsync.Options{
			Source:      cfg.Map.Source,
			SourceLayer: cfg.Map.SourceLayer,
			BlockLayer:  cfg.Map.BlockLayer,
		})
		return &session.Session{
			Store:   store,
			Wizard:  wizard.New(cfg.Steps),
			Adapter: adapter,
			Surface: surface,
		}
	})
	go registry.Run(ctx)

	h := httpapi.NewHandler(logger, httpapi.MapConfig{
		Token:         cfg.Map.Token,
		BlockLayer:    cfg.Map.BlockLayer,
		BoundaryLayer: cfg.Map.BoundaryLayer,
	}, catalog, registry, m)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("blocksd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}

// loadBlocks reads the block polygon dataset backing the map surface. A
// missing dataset leaves the surface not ready: adapter operations become
// no-ops rather than failures.
func loadBlocks(logger zerolog.Logger, path string) *geojson.FeatureCollection {
	if path == "" {
		logger.Warn().Msg("no blocks dataset configured, map surface will not be ready")
		return nil
	}
	fc, err := mapsurface.LoadBlocks(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("blocks dataset load failed, map surface will not be ready")
		return nil
	}
	logger.Info().Int("features", len(fc.Features)).Str("path", path).Msg("blocks dataset loaded")
	return fc
}

// loadBoundaries performs the one-shot boundary fetch. A failure degrades
// to an empty catalog: spatial auto-selection is disabled, the service
// keeps running.
func loadBoundaries(ctx context.Context, logger zerolog.Logger, cfg config.Config, catalog *boundary.Catalog) {
	var src boundary.Source
	switch cfg.Boundaries.Source {
	case "postgres":
		pool, err := boundary.OpenPostgres(ctx, cfg.Boundaries.DatabaseURL)
		if err != nil {
			logger.Warn().Err(err).Msg("boundary database unavailable, spatial auto-selection disabled")
			return
		}
		// One-shot load; the pool is not needed once the catalog is cached.
		defer pool.Close()
		src = boundary.NewPostgresSource(logger, pool)
	case "file":
		src = boundary.NewFileSource(logger, cfg.Boundaries.Path)
	case "http":
		if cfg.Boundaries.URL == "" {
			logger.Warn().Msg("no boundary url configured, spatial auto-selection disabled")
			return
		}
		src = boundary.NewHTTPSource(logger, cfg.Boundaries.URL, nil)
	default:
		logger.Warn().Str("source", cfg.Boundaries.Source).Msg("unknown boundary source, spatial auto-selection disabled")
		return
	}

	if err := catalog.Load(ctx, src); err != nil {
		logger.Warn().Err(err).Msg("boundary load failed, spatial auto-selection disabled")
		return
	}
	logger.Info().Int("boundaries", catalog.Len()).Msg("boundary catalog loaded")
}

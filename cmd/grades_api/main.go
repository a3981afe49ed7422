package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/ecala/gradesync/internal/cache"
	"github.com/ecala/gradesync/internal/catalog"
	"github.com/ecala/gradesync/internal/extract"
	"github.com/ecala/gradesync/internal/moodle"
	"github.com/ecala/gradesync/internal/router"
	"github.com/ecala/gradesync/internal/server"
	"github.com/ecala/gradesync/internal/storage/factory"
	"github.com/labstack/echo/v4"
)

func main() {
	sCfg, err := server.LoadConfig()
	if err != nil {
		slog.Error("Failed to load server config", "error", err)
		os.Exit(1)
	}

	appSettings := NewAppConfig()
	cfg, err := appSettings.Load()
	if err != nil {
		slog.Error("Failed to load app configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	store, err := factory.NewStore(ctx, &cfg.StorageConfig)
	if err != nil {
		slog.Error("Failed to create durable store", "error", err)
		os.Exit(1)
	}

	client, err := moodle.NewWSClient(cfg.Moodle)
	if err != nil {
		slog.Error("Failed to create upstream client", "error", err)
		os.Exit(1)
	}

	cat, err := catalog.Load(cfg.ActivitiesPath, cfg.CoursesPath)
	if err != nil {
		slog.Error("Failed to load rosters", "error", err)
		os.Exit(1)
	}

	engine := extract.NewEngine(
		store,
		client,
		cache.NewIndividual(cfg.CachePath),
		cache.NewBulk(cfg.BulkCachePath),
	)

	e := echo.New()
	s := server.NewServer(e, sCfg)
	s.SetupHealthChecks(store)

	s.Echo.GET("/", func(c echo.Context) error {
		return c.String(200, "Grade Sync API is running")
	})

	extractRouter := router.NewExtractRouter(s.Echo, engine, cat)
	extractRouter.Bind()

	if err := s.Start(); err != nil {
		s.Echo.Logger.Error("Failed to start server: ", err)
		os.Exit(1)
	}
}

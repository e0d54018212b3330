package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/climate-series/internal/api/http"
	"github.com/i474232898/climate-series/internal/config"
	"github.com/i474232898/climate-series/internal/provider"
	"github.com/i474232898/climate-series/internal/scheduler"
	"github.com/i474232898/climate-series/internal/series"
	"github.com/i474232898/climate-series/internal/series/remote"
	"github.com/i474232898/climate-series/internal/store"
	"github.com/i474232898/climate-series/internal/worker"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	// Shared HTTP client for fetching series documents.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	fetcher, err := remote.NewFetcher(httpClient, cfg.DataBaseURL, cfg.FetchMaxRetries)
	if err != nil {
		slog.Error("failed to create fetcher", "error", err)
		os.Exit(1)
	}

	// Local cache; a nil cache sends every request to the network.
	var cache series.Cache
	switch cfg.CacheDriver {
	case config.CacheSQLite:
		sqliteStore, err := store.Open(cfg.CachePath)
		if err != nil {
			slog.Error("failed to open cache", "path", cfg.CachePath, "error", err)
			os.Exit(1)
		}
		defer sqliteStore.Close()
		cache = sqliteStore
	case config.CacheMemory:
		cache = store.NewMemoryStore()
	}

	spawn := worker.NewSpawner(fetcher, cache)

	app := fiber.New(fiber.Config{
		AppName:               "climate-series",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "climate-series",
		})
	})

	httpapi.RegisterRoutes(app, spawn, cfg.Routes)

	// Series documents and widget assets.
	app.Static("/", cfg.StaticDir)

	// Bound before the scheduler starts, since warm-ups may fetch from this server.
	addr, stopped, err := httpapi.Serve(app, ":"+cfg.Port)
	if err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}
	slog.Info("server listening", "addr", addr.String(), "static", cfg.StaticDir)
	go func() {
		if err := <-stopped; err != nil {
			slog.Error("fiber server stopped", "error", err)
		}
	}()

	// Fill empty caches in the background; warm ones are left untouched.
	sched := scheduler.New(cfg.Routes.Aliases(), cfg.WarmInterval, func(ctx context.Context, dataType string) error {
		_, err := provider.New(spawn, cfg.Routes).Fetch(ctx, dataType, series.Filter{})
		return err
	})
	if err := sched.Start(); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("error during shutdown", "error", err)
	}
	slog.Info("server stopped")
}

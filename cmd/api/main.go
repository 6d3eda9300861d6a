package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/parcelview/internal/adapters/http"
	"github.com/samirrijal/parcelview/internal/adapters/imagefetch"
	natsadapter "github.com/samirrijal/parcelview/internal/adapters/nats"
	"github.com/samirrijal/parcelview/internal/adapters/postgres"
	"github.com/samirrijal/parcelview/internal/adapters/valkey"
	"github.com/samirrijal/parcelview/internal/core/domain"
	"github.com/samirrijal/parcelview/internal/core/ports"
	"github.com/samirrijal/parcelview/internal/core/usecases"
	"github.com/samirrijal/parcelview/internal/pkg/config"
	"github.com/samirrijal/parcelview/internal/pkg/logging"
	"github.com/samirrijal/parcelview/internal/pkg/metrics"
	"github.com/samirrijal/parcelview/internal/pkg/overlay"
	"github.com/samirrijal/parcelview/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("parcelview-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer func() {
				flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer flushCancel()
				_ = shutdown(flushCtx)
			}()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go reportPoolStats(ctx, db)

	// Cache
	var cacheSvc ports.CacheService
	var cachePinger http.Pinger
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, proximity results uncached", "error", err)
	} else {
		defer cache.Close()
		cacheSvc, cachePinger = cache, cache
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	props := postgres.NewPropertyRepo(db)

	// In-memory spatial index, rebuilt whenever an import lands
	var index *usecases.SearchIndex
	if cfg.Search.Backend == config.SearchBackendMemory {
		index = usecases.NewSearchIndex(props)
		go refreshIndex(ctx, index, "startup")

		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, search index only built at startup", "error", err)
		} else {
			defer sub.Close()
			err := sub.SubscribePropertiesUpdated(ctx, func(ctx context.Context, ev *domain.PropertyEvent) error {
				slog.Info("properties updated", "count", len(ev.IDs), "source", ev.Source)
				_, err := index.Refresh(ctx)
				return err
			})
			if err != nil {
				slog.Warn("subscribe properties.updated failed", "error", err)
			}
		}
	}

	renderer := overlay.New(overlay.Options{
		Format:      domain.ImageFormat(strings.ToLower(cfg.Render.Format)),
		JPEGQuality: cfg.Render.JPEGQuality,
		StrokeWidth: cfg.Render.StrokeWidth,
		MaxPixels:   cfg.Render.MaxPixels,
	})
	images := imagefetch.New(cfg.Images.Timeout, cfg.Images.MaxBytes, imagefetch.WithFileRoot(cfg.Images.FileRoot))

	deps := &http.Dependencies{
		Properties: usecases.NewPropertyService(props, cacheSvc, index, cfg.Search.MaxRadius),
		Images:     usecases.NewImageService(props, images, renderer),
		Index:      index,
		NATS:       natsConn,
		DB:         db,
		Cache:      cachePinger,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "ParcelView API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "search_backend", cfg.Search.Backend, "format", renderer.Format())
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func refreshIndex(ctx context.Context, index *usecases.SearchIndex, reason string) {
	n, err := index.Refresh(ctx)
	if err != nil {
		slog.Error("search index refresh failed", "reason", reason, "error", err)
		return
	}
	slog.Info("search index ready", "reason", reason, "records", n)
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		case <-ctx.Done():
			return
		}
	}
}

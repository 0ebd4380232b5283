package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/wayfound/internal/adapters/http"
	natsadapter "github.com/samirrijal/wayfound/internal/adapters/nats"
	"github.com/samirrijal/wayfound/internal/adapters/places"
	"github.com/samirrijal/wayfound/internal/adapters/postgres"
	"github.com/samirrijal/wayfound/internal/adapters/store"
	"github.com/samirrijal/wayfound/internal/adapters/valkey"
	"github.com/samirrijal/wayfound/internal/core/ports"
	"github.com/samirrijal/wayfound/internal/core/usecases"
	"github.com/samirrijal/wayfound/internal/pkg/config"
	"github.com/samirrijal/wayfound/internal/pkg/logging"
	"github.com/samirrijal/wayfound/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("wayfound-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("wayfound-api", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolMetrics(ctx, 15*time.Second)

	// Cache
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		cacheSvc = cache
		defer cache.Close()
	}

	// NATS
	var events ports.EventPublisher
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		events = nc
		defer nc.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Persistence with cache fallback
	repo := postgres.NewDiscoveryRepo(db)
	discoveryStore := store.New(repo, cacheSvc, valkey.IsMiss)

	// External place lookup
	resolver := places.New(cfg.Places)

	// Use cases
	discoverySvc := usecases.NewDiscoveryService(discoveryStore, resolver, events, float64(cfg.Places.SearchRadiusM))
	reviewSvc := usecases.NewReviewService(discoveryStore, events, time.Duration(cfg.Review.DismissDays)*24*time.Hour)
	placeSvc := usecases.NewPlaceService(resolver, cacheSvc, cfg.Places.DefaultLanguage)

	deps := &http.Dependencies{
		Discoveries: discoverySvc,
		Reviews:     reviewSvc,
		Places:      placeSvc,
		NATS:        natsConn,
		DB:          db,
		Cache:       cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    2 * 1024 * 1024, // room for long route sample lists
		AppName:      "Wayfound API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.wayfound.app",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-User-ID, X-Dismissal-Policy",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
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

package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/wayfound/internal/adapters/valkey"
)

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": "dev",
		})
	}
}

// ReadyHandler checks DB, NATS, and cache connectivity. A reachable
// cache keeps the service usable when the database is down (writes are
// queued and replayed), so that combination reports degraded rather
// than not ready.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		dbOK := false
		cacheOK := false

		// Database
		if deps.DB != nil {
			if err := deps.DB.Pool.Ping(ctx); err != nil {
				checks["database"] = "error: " + err.Error()
			} else {
				checks["database"] = "ok"
				dbOK = true
			}
		} else {
			checks["database"] = "not configured"
		}

		// NATS
		natsOK := true
		if deps.NATS != nil {
			if deps.NATS.IsConnected() {
				checks["nats"] = "ok"
			} else {
				checks["nats"] = "disconnected"
				natsOK = false
			}
		} else {
			checks["nats"] = "not configured"
		}

		// Valkey cache; a miss on the probe key is expected
		if deps.Cache != nil {
			_, err := deps.Cache.Get(ctx, "__health_check__")
			if err != nil && !valkey.IsMiss(err) {
				checks["cache"] = "error: " + err.Error()
			} else {
				checks["cache"] = "ok"
				cacheOK = true
			}
		} else {
			checks["cache"] = "not configured"
		}

		status := "ready"
		code := 200
		switch {
		case dbOK && natsOK:
		case cacheOK:
			status = "degraded"
		default:
			status = "not ready"
			code = 503
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}

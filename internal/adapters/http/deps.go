package http

import (
	"github.com/nats-io/nats.go"
	"github.com/samirrijal/wayfound/internal/adapters/postgres"
	"github.com/samirrijal/wayfound/internal/adapters/valkey"
	"github.com/samirrijal/wayfound/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Discoveries *usecases.DiscoveryService
	Reviews     *usecases.ReviewService
	Places      *usecases.PlaceService
	NATS        *nats.Conn
	DB          *postgres.DB
	Cache       *valkey.Cache
}

package ports

import (
	"context"
	"time"

	"github.com/samirrijal/wayfound/internal/core/domain"
)

// FieldProfile names a pre-defined subset of lookup-service response
// fields, keeping request shapes independent of either generation's
// field-mask syntax.
type FieldProfile string

const (
	// ProfileSearchBasic requests identity, name, location and types only.
	ProfileSearchBasic FieldProfile = "search-basic"
	// ProfileDetailsFull additionally requests ratings, price level,
	// address, photos and attributions.
	ProfileDetailsFull FieldProfile = "details-full"
)

// PlacesResolver talks to the external place lookup service and
// normalizes whichever generation answered into StandardPlace records.
// It never persists anything.
type PlacesResolver interface {
	ResolveNearby(ctx context.Context, point domain.GeoPoint, radiusMeters float64, typeFilter, language string, profile FieldProfile) ([]domain.StandardPlace, error)
	ResolveDetails(ctx context.Context, placeID, language string, profile FieldProfile) (*domain.StandardPlace, error)
}

// DiscoveryStore is the persistence boundary used by the orchestrator
// and the review state machine. Implementations fall back to a local
// cache when the remote store is unreachable; in that case results are
// returned together with domain.ErrDegradedPersistence, which callers
// treat as a warning, not a failure.
type DiscoveryStore interface {
	LoadRouteDiscoveries(ctx context.Context, userID, routeID string) (*domain.RouteDiscoverySet, error)
	CreateDiscovery(ctx context.Context, d *domain.Discovery) error
	UpdateStatus(ctx context.Context, userID, discoveryID string, status domain.ReviewStatus, decidedAt *time.Time, expiresAt *time.Time) error
	GetDiscovery(ctx context.Context, userID, discoveryID string) (*domain.Discovery, error)
	LoadUserDiscoveries(ctx context.Context, userID string, status domain.ReviewStatus) ([]domain.Discovery, error)
	AttachSummary(ctx context.Context, userID, discoveryID string, summary []byte) error
}

// CacheService provides the local key-value cache used for degraded
// persistence and resolver response caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher publishes discovery lifecycle events to a message broker.
type EventPublisher interface {
	PublishDiscovered(ctx context.Context, d *domain.Discovery) error
	PublishReviewed(ctx context.Context, d *domain.Discovery) error
}

package ports

import (
	"context"
	"time"

	"github.com/samirrijal/wayfound/internal/core/domain"
)

// DiscoveryRepository persists discovery records in the remote document
// store, keyed by (user, route, place).
type DiscoveryRepository interface {
	Create(ctx context.Context, d *domain.Discovery) error
	ListByRoute(ctx context.Context, userID, routeID string) ([]domain.Discovery, error)
	ListByStatus(ctx context.Context, userID string, status domain.ReviewStatus) ([]domain.Discovery, error)
	GetByID(ctx context.Context, userID, discoveryID string) (*domain.Discovery, error)
	UpdateStatus(ctx context.Context, userID, discoveryID string, status domain.ReviewStatus, decidedAt *time.Time, expiresAt *time.Time) error
	AttachSummary(ctx context.Context, userID, discoveryID string, summary []byte) error
}

package usecases

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samirrijal/wayfound/internal/core/domain"
	"github.com/samirrijal/wayfound/internal/core/ports"
	"github.com/samirrijal/wayfound/internal/core/taxonomy"
	"github.com/samirrijal/wayfound/internal/pkg/geospatial"
	"github.com/samirrijal/wayfound/internal/pkg/metrics"
)

// Session carries the per-request user identity and preferences every
// use case needs. Nothing review-related is read from ambient state.
type Session struct {
	UserID string
	Policy domain.DismissalPolicy
}

// DiscoveryService coordinates route discovery: it decides whether a
// route needs a fresh lookup-service pass or can be answered from
// already-persisted discoveries, and persists what a fresh pass finds.
type DiscoveryService struct {
	store    ports.DiscoveryStore
	resolver ports.PlacesResolver
	events   ports.EventPublisher
	radiusM  float64
}

func NewDiscoveryService(store ports.DiscoveryStore, resolver ports.PlacesResolver, events ports.EventPublisher, radiusMeters float64) *DiscoveryService {
	if radiusMeters <= 0 {
		radiusMeters = 150
	}
	return &DiscoveryService{
		store:    store,
		resolver: resolver,
		events:   events,
		radiusM:  radiusMeters,
	}
}

// DiscoverForRoute returns the unreviewed discoveries for a route. If
// the route already has persisted discoveries the resolver is not
// called at all; otherwise each sampled point is resolved once, the
// results are deduplicated, classified and persisted as unreviewed
// discoveries. A returned domain.ErrDegradedPersistence is a warning:
// the discoveries alongside it are usable.
func (s *DiscoveryService) DiscoverForRoute(ctx context.Context, sess Session, routeID string, samples []domain.RouteSample, typeFilters []string, language string) ([]domain.Discovery, error) {
	set, err := s.store.LoadRouteDiscoveries(ctx, sess.UserID, routeID)
	degraded := errors.Is(err, domain.ErrDegradedPersistence)
	if err != nil && !degraded {
		return nil, err
	}
	if degraded {
		slog.Warn("route discoveries loaded from degraded store", "route_id", routeID)
	}

	now := time.Now().UTC()
	if !set.Empty() {
		metrics.DiscoveryRoutesResolved.WithLabelValues("store").Inc()
		out := filterDiscoveries(set.Unreviewed(now), typeFilters)
		if degraded {
			return out, domain.ErrDegradedPersistence
		}
		return out, nil
	}

	points := geospatial.SampleRoute(samples, s.radiusM)
	if len(points) == 0 {
		return nil, nil
	}

	places, err := s.resolvePoints(ctx, points, typeFilters, language)
	if err != nil {
		// Every generation failed for at least one point. Nothing is
		// persisted; the client retries discovery explicitly.
		slog.Warn("route discovery degraded to empty result", "route_id", routeID, "error", err)
		return nil, nil
	}
	metrics.DiscoveryRoutesResolved.WithLabelValues("resolver").Inc()

	places = dedupePlaces(places)
	places = filterPlaces(places, typeFilters)

	var created []domain.Discovery
	for i := range places {
		d := domain.Discovery{
			UserID:       sess.UserID,
			RouteID:      routeID,
			PlaceID:      places[i].PlaceID,
			Snapshot:     places[i],
			Status:       domain.StatusUnreviewed,
			DiscoveredAt: now,
		}
		if err := s.store.CreateDiscovery(ctx, &d); err != nil {
			if !errors.Is(err, domain.ErrDegradedPersistence) {
				return nil, err
			}
			degraded = true
		}
		metrics.DiscoveriesCreated.Inc()
		created = append(created, d)
		s.publishDiscovered(ctx, &d)
	}

	if degraded {
		return created, domain.ErrDegradedPersistence
	}
	return created, nil
}

// resolvePoints calls the resolver once per sampled point. All points
// must resolve: a single hard failure aborts the whole pass so a
// partially-seen route is never persisted as fully discovered.
func (s *DiscoveryService) resolvePoints(ctx context.Context, points []domain.GeoPoint, typeFilters []string, language string) ([]domain.StandardPlace, error) {
	hint := serverTypeHint(typeFilters)
	var all []domain.StandardPlace
	for _, p := range points {
		places, err := s.resolver.ResolveNearby(ctx, p, s.radiusM, hint, language, ports.ProfileDetailsFull)
		if err != nil {
			return nil, err
		}
		all = append(all, places...)
	}
	return all, nil
}

func (s *DiscoveryService) publishDiscovered(ctx context.Context, d *domain.Discovery) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishDiscovered(ctx, d); err != nil {
		slog.Warn("failed to publish discovery event", "place_id", d.PlaceID, "error", err)
	}
}

// serverTypeHint narrows the lookup-service query when exactly one
// subtype filter is given. Broader filter sets are applied locally by
// the classifier, which also handles mixed-use suppression.
func serverTypeHint(filters []string) string {
	if len(filters) != 1 {
		return ""
	}
	if tag, ok := taxonomy.CanonicalTag(filters[0]); ok {
		return tag
	}
	return ""
}

func dedupePlaces(places []domain.StandardPlace) []domain.StandardPlace {
	seen := make(map[string]bool, len(places))
	out := places[:0]
	for _, p := range places {
		if seen[p.PlaceID] {
			metrics.PlacesFilteredOut.WithLabelValues("duplicate").Inc()
			continue
		}
		seen[p.PlaceID] = true
		out = append(out, p)
	}
	return out
}

func filterPlaces(places []domain.StandardPlace, filters []string) []domain.StandardPlace {
	if len(filters) == 0 {
		return places
	}
	out := places[:0]
	for _, p := range places {
		if matchesAny(&p, filters) {
			out = append(out, p)
			continue
		}
		reason := "category"
		if taxonomy.MixedUse(&p) {
			reason = "mixed_use"
		}
		metrics.PlacesFilteredOut.WithLabelValues(reason).Inc()
	}
	return out
}

func filterDiscoveries(ds []domain.Discovery, filters []string) []domain.Discovery {
	if len(filters) == 0 {
		return ds
	}
	var out []domain.Discovery
	for i := range ds {
		if matchesAny(&ds[i].Snapshot, filters) {
			out = append(out, ds[i])
		}
	}
	return out
}

func matchesAny(p *domain.StandardPlace, filters []string) bool {
	for _, f := range filters {
		if taxonomy.MatchesFilter(p, f) {
			return true
		}
	}
	return false
}

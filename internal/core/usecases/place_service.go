package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/samirrijal/wayfound/internal/core/domain"
	"github.com/samirrijal/wayfound/internal/core/ports"
	"github.com/samirrijal/wayfound/internal/pkg/metrics"
)

const placeDetailsTTL = 86400 // seconds

// PlaceService serves on-demand place detail lookups with a cache in
// front of the resolver. Details change rarely, so a day of staleness
// is acceptable.
type PlaceService struct {
	resolver ports.PlacesResolver
	cache    ports.CacheService
	language string
}

func NewPlaceService(resolver ports.PlacesResolver, cache ports.CacheService, language string) *PlaceService {
	return &PlaceService{resolver: resolver, cache: cache, language: language}
}

// Nearby returns places around a point without creating discoveries.
// Uses the slim search profile since only identity and location matter
// for an ad-hoc map lookup.
func (s *PlaceService) Nearby(ctx context.Context, point domain.GeoPoint, radiusMeters float64, typeFilter, language string) ([]domain.StandardPlace, error) {
	if language == "" {
		language = s.language
	}
	return s.resolver.ResolveNearby(ctx, point, radiusMeters, typeFilter, language, ports.ProfileSearchBasic)
}

// GetDetails returns the full detail record for one place.
func (s *PlaceService) GetDetails(ctx context.Context, placeID, language string) (*domain.StandardPlace, error) {
	if language == "" {
		language = s.language
	}
	cacheKey := fmt.Sprintf("places:details:%s:%s", placeID, language)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil && cached != nil {
			var place domain.StandardPlace
			if err := json.Unmarshal(cached, &place); err == nil {
				metrics.CacheHits.WithLabelValues("place_details").Inc()
				return &place, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("place_details").Inc()
	}

	place, err := s.resolver.ResolveDetails(ctx, placeID, language, ports.ProfileDetailsFull)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(place); err == nil {
			if err := s.cache.Set(ctx, cacheKey, data, placeDetailsTTL); err != nil {
				slog.Warn("failed to cache place details", "place_id", placeID, "error", err)
			}
		}
	}
	return place, nil
}

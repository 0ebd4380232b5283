// Package places adapts two generations of the external place lookup
// service behind a single resolver, normalizing both response shapes
// into domain.StandardPlace. The resolver holds no state besides its
// clients and never persists anything.
package places

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/samirrijal/wayfound/internal/core/domain"
	"github.com/samirrijal/wayfound/internal/core/ports"
	"github.com/samirrijal/wayfound/internal/pkg/config"
	"github.com/samirrijal/wayfound/internal/pkg/metrics"
)

// nearbyQuery is one logical nearby-search, independent of generation.
type nearbyQuery struct {
	point      domain.GeoPoint
	radius     float64
	typeFilter string
	language   string
	profile    profileSpec
}

// detailsQuery is one logical place-details lookup.
type detailsQuery struct {
	placeID  string
	language string
	profile  profileSpec
}

// generation is one endpoint family of the lookup service. Generations
// are tried in order; the first success short-circuits, so adding a
// third generation or reordering preference is a data change.
type generation interface {
	name() string
	searchNearby(ctx context.Context, q nearbyQuery) ([]domain.StandardPlace, error)
	placeDetails(ctx context.Context, q detailsQuery) (*domain.StandardPlace, error)
}

// Resolver implements ports.PlacesResolver with generation fallback.
type Resolver struct {
	gens     []generation
	language string
}

// New creates a Resolver trying the current generation first and the
// legacy generation second.
func New(cfg config.PlacesConfig) *Resolver {
	client := &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	return &Resolver{
		gens: []generation{
			&newGen{baseURL: cfg.BaseURL, apiKey: cfg.APIKey, client: client},
			&legacyGen{baseURL: cfg.LegacyBaseURL, apiKey: cfg.APIKey, client: client},
		},
		language: cfg.DefaultLanguage,
	}
}

// ResolveNearby looks up places around a point, requesting only the
// fields named by the profile. Every generation failing yields
// domain.ErrPlacesUnavailable; nothing is cached for a failed call.
func (r *Resolver) ResolveNearby(ctx context.Context, point domain.GeoPoint, radiusMeters float64, typeFilter, language string, profile ports.FieldProfile) ([]domain.StandardPlace, error) {
	spec, err := lookupProfile(profile)
	if err != nil {
		return nil, err
	}
	if !point.Valid() {
		return nil, fmt.Errorf("nearby search: %w", domain.ErrInvalidPlaceLocation)
	}
	if language == "" {
		language = r.language
	}

	q := nearbyQuery{
		point:      point,
		radius:     radiusMeters,
		typeFilter: typeFilter,
		language:   language,
		profile:    spec,
	}

	var lastErr error
	for i, gen := range r.gens {
		if i > 0 {
			metrics.ResolverFallbacks.Inc()
			slog.Warn("places generation failed, falling back",
				"failed", r.gens[i-1].name(), "next", gen.name(), "error", lastErr)
		}

		start := time.Now()
		result, err := gen.searchNearby(ctx, q)
		metrics.ResolverDuration.WithLabelValues(gen.name(), "nearby").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ResolverRequests.WithLabelValues(gen.name(), "nearby", "error").Inc()
			lastErr = err
			continue
		}
		metrics.ResolverRequests.WithLabelValues(gen.name(), "nearby", "ok").Inc()
		return result, nil
	}

	return nil, fmt.Errorf("%w: %v", domain.ErrPlacesUnavailable, lastErr)
}

// ResolveDetails looks up a single place by its stable identifier.
func (r *Resolver) ResolveDetails(ctx context.Context, placeID, language string, profile ports.FieldProfile) (*domain.StandardPlace, error) {
	spec, err := lookupProfile(profile)
	if err != nil {
		return nil, err
	}
	if placeID == "" {
		return nil, fmt.Errorf("place id must not be empty")
	}
	if language == "" {
		language = r.language
	}

	q := detailsQuery{placeID: placeID, language: language, profile: spec}

	var lastErr error
	for i, gen := range r.gens {
		if i > 0 {
			metrics.ResolverFallbacks.Inc()
			slog.Warn("places generation failed, falling back",
				"failed", r.gens[i-1].name(), "next", gen.name(), "error", lastErr)
		}

		start := time.Now()
		result, err := gen.placeDetails(ctx, q)
		metrics.ResolverDuration.WithLabelValues(gen.name(), "details").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ResolverRequests.WithLabelValues(gen.name(), "details", "error").Inc()
			lastErr = err
			continue
		}
		metrics.ResolverRequests.WithLabelValues(gen.name(), "details", "ok").Inc()
		return result, nil
	}

	return nil, fmt.Errorf("%w: %v", domain.ErrPlacesUnavailable, lastErr)
}

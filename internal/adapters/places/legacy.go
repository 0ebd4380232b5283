package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/samirrijal/wayfound/internal/core/domain"
	"github.com/samirrijal/wayfound/internal/pkg/metrics"
)

// legacyGen talks to the legacy endpoint family: GET requests with
// query parameters and an in-body status code.
type legacyGen struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func (g *legacyGen) name() string { return "legacy" }

func (g *legacyGen) searchNearby(ctx context.Context, q nearbyQuery) ([]domain.StandardPlace, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", q.point.Lat, q.point.Lng))
	params.Set("radius", strconv.FormatFloat(q.radius, 'f', 0, 64))
	params.Set("key", g.apiKey)
	if q.typeFilter != "" {
		params.Set("type", q.typeFilter)
	}
	if q.language != "" {
		params.Set("language", q.language)
	}

	body, err := g.get(ctx, g.baseURL+"/nearbysearch/json?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp legacySearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	if resp.Status != "OK" && resp.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("service status %s: %s", resp.Status, resp.ErrorMessage)
	}

	return normalizeLegacy(resp.Results, resp.Attributions), nil
}

func (g *legacyGen) placeDetails(ctx context.Context, q detailsQuery) (*domain.StandardPlace, error) {
	params := url.Values{}
	params.Set("place_id", q.placeID)
	params.Set("fields", q.profile.legacyFields)
	params.Set("key", g.apiKey)
	if q.language != "" {
		params.Set("language", q.language)
	}

	body, err := g.get(ctx, g.baseURL+"/details/json?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp legacyDetailsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	if resp.Status != "OK" || resp.Result == nil {
		return nil, fmt.Errorf("service status %s: %s", resp.Status, resp.ErrorMessage)
	}
	if err := resp.Result.validate(); err != nil {
		return nil, err
	}

	sp := resp.Result.toStandard()
	sp.Attributions = append(sp.Attributions, resp.Attributions...)
	return &sp, nil
}

func (g *legacyGen) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(body, 200))
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty response body")
	}
	return body, nil
}

func normalizeLegacy(raw []legacyPlace, attributions []string) []domain.StandardPlace {
	out := make([]domain.StandardPlace, 0, len(raw))
	for i := range raw {
		if err := raw[i].validate(); err != nil {
			if errors.Is(err, domain.ErrInvalidPlaceLocation) {
				metrics.PlacesFilteredOut.WithLabelValues("invalid_location").Inc()
				slog.Warn("dropping place without coordinates", "place_id", raw[i].PlaceID)
			} else {
				slog.Warn("dropping invalid place payload", "error", err)
			}
			continue
		}
		sp := raw[i].toStandard()
		sp.Attributions = append(sp.Attributions, attributions...)
		out = append(out, sp)
	}
	return out
}

package places

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/samirrijal/wayfound/internal/core/domain"
	"github.com/samirrijal/wayfound/internal/pkg/metrics"
)

// newGen talks to the current-generation endpoint family: JSON POST
// bodies and explicit field masks in the X-Goog-FieldMask header.
type newGen struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func (g *newGen) name() string { return "v1" }

type newSearchRequest struct {
	IncludedTypes       []string          `json:"includedTypes,omitempty"`
	MaxResultCount      int               `json:"maxResultCount"`
	LanguageCode        string            `json:"languageCode,omitempty"`
	LocationRestriction newLocationCircle `json:"locationRestriction"`
}

type newLocationCircle struct {
	Circle struct {
		Center newLatLng `json:"center"`
		Radius float64   `json:"radius"`
	} `json:"circle"`
}

func (g *newGen) searchNearby(ctx context.Context, q nearbyQuery) ([]domain.StandardPlace, error) {
	reqBody := newSearchRequest{
		MaxResultCount: 20,
		LanguageCode:   q.language,
	}
	if q.typeFilter != "" {
		reqBody.IncludedTypes = []string{q.typeFilter}
	}
	reqBody.LocationRestriction.Circle.Center = newLatLng{Latitude: q.point.Lat, Longitude: q.point.Lng}
	reqBody.LocationRestriction.Circle.Radius = q.radius

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/places:searchNearby", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", g.apiKey)
	req.Header.Set("X-Goog-FieldMask", q.profile.searchMask)

	body, err := g.do(req)
	if err != nil {
		return nil, err
	}

	var resp newSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}

	return normalizeNew(resp.Places), nil
}

func (g *newGen) placeDetails(ctx context.Context, q detailsQuery) (*domain.StandardPlace, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+"/places/"+url.PathEscape(q.placeID)+"?languageCode="+url.QueryEscape(q.language), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Goog-Api-Key", g.apiKey)
	req.Header.Set("X-Goog-FieldMask", q.profile.detailsMask)

	body, err := g.do(req)
	if err != nil {
		return nil, err
	}

	var place newPlace
	if err := json.Unmarshal(body, &place); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	if err := place.validate(); err != nil {
		return nil, err
	}

	sp := place.toStandard()
	return &sp, nil
}

func (g *newGen) do(req *http.Request) ([]byte, error) {
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

// normalizeNew validates and converts raw payloads, dropping entries
// that fail validation rather than failing the whole response.
func normalizeNew(raw []newPlace) []domain.StandardPlace {
	out := make([]domain.StandardPlace, 0, len(raw))
	for i := range raw {
		if err := raw[i].validate(); err != nil {
			if errors.Is(err, domain.ErrInvalidPlaceLocation) {
				metrics.PlacesFilteredOut.WithLabelValues("invalid_location").Inc()
				slog.Warn("dropping place without coordinates", "place_id", raw[i].ID)
			} else {
				slog.Warn("dropping invalid place payload", "error", err)
			}
			continue
		}
		out = append(out, raw[i].toStandard())
	}
	return out
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

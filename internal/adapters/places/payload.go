package places

import (
	"fmt"

	"github.com/samirrijal/wayfound/internal/core/domain"
)

// Raw payload schemas for both lookup-service generations. Fields are
// explicit about required vs optional and each payload is validated
// before normalization; nothing duck-typed crosses this boundary.

// ---------------------------------------------------------------------------
// Current generation
// ---------------------------------------------------------------------------

type newSearchResponse struct {
	Places []newPlace `json:"places"`
}

type newPlace struct {
	ID          string        `json:"id"`
	DisplayName *newLocalized `json:"displayName"`
	PrimaryType string        `json:"primaryType"`
	Types       []string      `json:"types"`
	Location    *newLatLng    `json:"location"`
	Rating      *float64      `json:"rating"`
	RatingCount *int          `json:"userRatingCount"`
	PriceLevel  string        `json:"priceLevel"`
	Address     string        `json:"formattedAddress"`
	Photos      []newPhoto    `json:"photos"`
}

type newLocalized struct {
	Text string `json:"text"`
}

type newLatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type newPhoto struct {
	Name     string   `json:"name"`
	WidthPx  int      `json:"widthPx"`
	HeightPx int      `json:"heightPx"`
	Authors  []string `json:"authorAttributions,omitempty"`
}

func (p *newPlace) validate() error {
	if p.ID == "" {
		return fmt.Errorf("place missing id")
	}
	if p.DisplayName == nil || p.DisplayName.Text == "" {
		return fmt.Errorf("place %s missing display name", p.ID)
	}
	if p.Location == nil || !(domain.GeoPoint{Lat: p.Location.Latitude, Lng: p.Location.Longitude}).Valid() {
		return fmt.Errorf("place %s: %w", p.ID, domain.ErrInvalidPlaceLocation)
	}
	return nil
}

// newPriceLevels maps the current generation's enum to the legacy
// numeric scale the normalized record uses.
var newPriceLevels = map[string]int{
	"PRICE_LEVEL_FREE":           0,
	"PRICE_LEVEL_INEXPENSIVE":    1,
	"PRICE_LEVEL_MODERATE":       2,
	"PRICE_LEVEL_EXPENSIVE":      3,
	"PRICE_LEVEL_VERY_EXPENSIVE": 4,
}

func (p *newPlace) toStandard() domain.StandardPlace {
	sp := domain.StandardPlace{
		PlaceID: p.ID,
		Name:    p.DisplayName.Text,
		Types:   p.Types,
		Location: domain.GeoPoint{
			Lat: p.Location.Latitude,
			Lng: p.Location.Longitude,
		},
		Rating:      p.Rating,
		RatingCount: p.RatingCount,
		Address:     p.Address,
	}
	if len(sp.Types) == 0 {
		sp.Types = []string{"unknown"}
	}
	if p.PrimaryType != "" {
		sp.PrimaryCategory = p.PrimaryType
	} else {
		sp.PrimaryCategory = sp.Types[0]
	}
	if lvl, ok := newPriceLevels[p.PriceLevel]; ok {
		sp.PriceLevel = &lvl
	}
	for _, ph := range p.Photos {
		sp.Photos = append(sp.Photos, domain.PhotoRef{
			Reference: ph.Name,
			WidthPx:   ph.WidthPx,
			HeightPx:  ph.HeightPx,
		})
		sp.Attributions = append(sp.Attributions, ph.Authors...)
	}
	return sp
}

// ---------------------------------------------------------------------------
// Legacy generation
// ---------------------------------------------------------------------------

type legacySearchResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message"`
	Results      []legacyPlace `json:"results"`
	Attributions []string      `json:"html_attributions"`
}

type legacyDetailsResponse struct {
	Status       string       `json:"status"`
	ErrorMessage string       `json:"error_message"`
	Result       *legacyPlace `json:"result"`
	Attributions []string     `json:"html_attributions"`
}

type legacyPlace struct {
	PlaceID     string          `json:"place_id"`
	Name        string          `json:"name"`
	Types       []string        `json:"types"`
	Geometry    *legacyGeometry `json:"geometry"`
	Rating      *float64        `json:"rating"`
	RatingCount *int            `json:"user_ratings_total"`
	PriceLevel  *int            `json:"price_level"`
	// The two generations name the address field differently: nearby
	// search fills vicinity, details fills formatted_address.
	Vicinity         string        `json:"vicinity"`
	FormattedAddress string        `json:"formatted_address"`
	Photos           []legacyPhoto `json:"photos"`
}

type legacyGeometry struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

type legacyPhoto struct {
	Reference    string   `json:"photo_reference"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	Attributions []string `json:"html_attributions"`
}

func (p *legacyPlace) validate() error {
	if p.PlaceID == "" {
		return fmt.Errorf("place missing place_id")
	}
	if p.Name == "" {
		return fmt.Errorf("place %s missing name", p.PlaceID)
	}
	if p.Geometry == nil || !(domain.GeoPoint{Lat: p.Geometry.Location.Lat, Lng: p.Geometry.Location.Lng}).Valid() {
		return fmt.Errorf("place %s: %w", p.PlaceID, domain.ErrInvalidPlaceLocation)
	}
	return nil
}

func (p *legacyPlace) toStandard() domain.StandardPlace {
	sp := domain.StandardPlace{
		PlaceID: p.PlaceID,
		Name:    p.Name,
		Types:   p.Types,
		Location: domain.GeoPoint{
			Lat: p.Geometry.Location.Lat,
			Lng: p.Geometry.Location.Lng,
		},
		Rating:      p.Rating,
		RatingCount: p.RatingCount,
		PriceLevel:  p.PriceLevel,
		Address:     p.FormattedAddress,
	}
	if sp.Address == "" {
		sp.Address = p.Vicinity
	}
	if len(sp.Types) == 0 {
		sp.Types = []string{"unknown"}
	}
	// The legacy generation has no explicit primary type.
	sp.PrimaryCategory = sp.Types[0]
	for _, ph := range p.Photos {
		sp.Photos = append(sp.Photos, domain.PhotoRef{
			Reference: ph.Reference,
			WidthPx:   ph.Width,
			HeightPx:  ph.Height,
		})
		sp.Attributions = append(sp.Attributions, ph.Attributions...)
	}
	return sp
}

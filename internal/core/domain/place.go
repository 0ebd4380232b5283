package domain

// PhotoRef is an opaque reference to a place photo hosted by the
// lookup service. The media URL is resolved by the presentation layer.
type PhotoRef struct {
	Reference string `json:"reference"`
	WidthPx   int    `json:"width_px,omitempty"`
	HeightPx  int    `json:"height_px,omitempty"`
}

// StandardPlace is the normalized view of one point of interest,
// independent of which lookup-service generation produced it.
//
// PlaceID is globally unique and is the join key between resolver
// output and persisted discoveries. Types is never empty; when the
// service supplies no tags it is ["unknown"]. Optional fields are
// pointers so that "absent" survives normalization instead of being
// defaulted to zero.
type StandardPlace struct {
	PlaceID         string     `json:"place_id"`
	Name            string     `json:"name"`
	PrimaryCategory string     `json:"primary_category"`
	Types           []string   `json:"types"`
	Location        GeoPoint   `json:"location"`
	Rating          *float64   `json:"rating,omitempty"`
	RatingCount     *int       `json:"rating_count,omitempty"`
	PriceLevel      *int       `json:"price_level,omitempty"`
	Address         string     `json:"address,omitempty"`
	Photos          []PhotoRef `json:"photos,omitempty"`
	Attributions    []string   `json:"attributions,omitempty"`
}

// PrimaryType returns the place's explicit primary category, falling
// back to the first raw tag.
func (p *StandardPlace) PrimaryType() string {
	if p.PrimaryCategory != "" {
		return p.PrimaryCategory
	}
	if len(p.Types) > 0 {
		return p.Types[0]
	}
	return "unknown"
}

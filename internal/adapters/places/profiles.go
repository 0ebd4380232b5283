package places

import (
	"fmt"

	"github.com/samirrijal/wayfound/internal/core/ports"
)

// profileSpec pins one named field profile to the request syntax of
// each lookup-service generation. Profiles exist so callers never spell
// raw field strings: the set of requested fields is a deliberate,
// reviewed cost decision.
type profileSpec struct {
	// searchMask / detailsMask are the current generation's field masks.
	searchMask  string
	detailsMask string
	// legacyFields is the legacy generation's details `fields` parameter.
	// Legacy nearby-search ignores field selection entirely.
	legacyFields string
}

var profiles = map[ports.FieldProfile]profileSpec{
	ports.ProfileSearchBasic: {
		searchMask:   "places.id,places.displayName,places.primaryType,places.types,places.location",
		detailsMask:  "id,displayName,primaryType,types,location",
		legacyFields: "place_id,name,types,geometry",
	},
	ports.ProfileDetailsFull: {
		searchMask: "places.id,places.displayName,places.primaryType,places.types,places.location," +
			"places.rating,places.userRatingCount,places.priceLevel,places.formattedAddress,places.photos",
		detailsMask: "id,displayName,primaryType,types,location," +
			"rating,userRatingCount,priceLevel,formattedAddress,photos",
		legacyFields: "place_id,name,types,geometry,rating,user_ratings_total,price_level,vicinity,photos",
	},
}

func lookupProfile(p ports.FieldProfile) (profileSpec, error) {
	spec, ok := profiles[p]
	if !ok {
		return profileSpec{}, fmt.Errorf("unknown field profile %q", p)
	}
	return spec, nil
}

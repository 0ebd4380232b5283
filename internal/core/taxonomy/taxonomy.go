// Package taxonomy maps the raw type tags reported by the place lookup
// service onto a small set of user-facing categories. It is pure: no
// I/O, no configuration, no state beyond the fixed tables below.
package taxonomy

import "github.com/samirrijal/wayfound/internal/core/domain"

// Unknown is returned when no tag of a place appears in the taxonomy.
const Unknown = "unknown"

// Top-level category groups.
const (
	GroupFoodDrink            = "food_drink"
	GroupShopping             = "shopping"
	GroupEntertainmentCulture = "entertainment_culture"
	GroupHealthWellness       = "health_wellness"
	GroupServicesUtilities    = "services_utilities"
	GroupOutdoorsRecreation   = "outdoors_recreation"
)

// groups maps each top-level group to its named subtypes, and each
// subtype to the raw tags it accepts. The first tag of each list is the
// canonical one. Generic tags the service attaches to nearly everything
// ("establishment", "point_of_interest", "food") are deliberately
// absent so they never drive classification.
var groups = map[string]map[string][]string{
	GroupFoodDrink: {
		"restaurant":  {"restaurant", "meal_takeaway", "meal_delivery", "fast_food_restaurant", "pizza_restaurant", "sushi_restaurant"},
		"cafe":        {"cafe", "coffee_shop", "tea_house", "bakery", "ice_cream_shop", "dessert_shop"},
		"bar":         {"bar", "pub", "wine_bar", "cocktail_bar", "brewery", "winery"},
		"food_market": {"food_court", "deli", "butcher_shop", "grocery_store", "supermarket"},
	},
	GroupShopping: {
		"clothing":    {"clothing_store", "shoe_store", "jewelry_store"},
		"bookstore":   {"book_store", "stationery_store", "comic_book_store"},
		"convenience": {"convenience_store", "liquor_store", "tobacco_shop"},
		"general":     {"store", "shopping_mall", "department_store", "home_goods_store", "furniture_store", "electronics_store", "gift_shop", "florist", "hardware_store", "pet_store", "toy_store"},
	},
	GroupEntertainmentCulture: {
		"museum":    {"museum", "art_gallery", "cultural_center", "historical_landmark", "monument"},
		"theater":   {"movie_theater", "performing_arts_theater", "concert_hall", "opera_house"},
		"nightlife": {"night_club", "casino", "comedy_club", "karaoke"},
		"venue":     {"amusement_park", "aquarium", "zoo", "bowling_alley", "stadium", "tourist_attraction"},
	},
	GroupHealthWellness: {
		"fitness": {"gym", "fitness_center", "yoga_studio", "sports_club"},
		"spa":     {"spa", "sauna", "massage", "beauty_salon", "hair_salon", "nail_salon"},
		"medical": {"pharmacy", "drugstore", "doctor", "dentist", "hospital", "physiotherapist", "veterinary_care"},
	},
	GroupServicesUtilities: {
		"finance":   {"bank", "atm", "insurance_agency", "accounting"},
		"transport": {"gas_station", "electric_vehicle_charging_station", "parking", "car_rental", "car_repair", "car_wash", "bicycle_store"},
		"civic":     {"post_office", "library", "city_hall", "courthouse", "police", "fire_station", "embassy"},
		"lodging":   {"lodging", "hotel", "motel", "hostel", "bed_and_breakfast", "resort_hotel", "campground"},
		"everyday":  {"laundry", "dry_cleaning", "locksmith", "travel_agency", "real_estate_agency", "storage"},
	},
	GroupOutdoorsRecreation: {
		"park":   {"park", "national_park", "state_park", "botanical_garden", "garden", "dog_park", "playground"},
		"trail":  {"hiking_area", "trail", "bicycle_trail", "scenic_point", "viewpoint"},
		"water":  {"beach", "marina", "swimming_pool", "lake"},
		"sports": {"sports_complex", "golf_course", "ski_resort", "ice_skating_rink", "skateboard_park"},
	},
}

// mixedUsePrimaries lists primary tags of venues that legitimately span
// several category groups. A tagged restaurant inside one of these must
// not pollute a restaurant filter.
var mixedUsePrimaries = map[string]bool{
	// multi-purpose buildings
	"shopping_mall":    true,
	"department_store": true,
	"lodging":          true,
	"hotel":            true,
	"motel":            true,
	"resort_hotel":     true,
	// cultural venues that usually run a cafe or restaurant
	"museum":                  true,
	"art_gallery":             true,
	"cultural_center":         true,
	"performing_arts_theater": true,
	"stadium":                 true,
	// entertainment venues with in-house food service
	"casino":         true,
	"movie_theater":  true,
	"bowling_alley":  true,
	"amusement_park": true,
	"night_club":     true,
	// food and drink venues commonly hosting non-food services
	"food_court":  true,
	"winery":      true,
	"brewery":     true,
	"supermarket": true,
}

// Reverse indexes, built once from the table above.
var (
	tagToSubtype = map[string]string{}
	tagToGroup   = map[string]string{}
	subtypeGroup = map[string]string{}
	groupTags    = map[string][]string{}
)

func init() {
	for group, subtypes := range groups {
		for subtype, tags := range subtypes {
			subtypeGroup[subtype] = group
			for _, tag := range tags {
				tagToSubtype[tag] = subtype
				tagToGroup[tag] = group
				groupTags[group] = append(groupTags[group], tag)
			}
		}
	}
}

// Classify returns the subtype of a place, derived from its primary
// type, falling back to scanning its raw tags in order, falling back to
// Unknown when nothing matches. It is total: any place yields a result.
func Classify(place *domain.StandardPlace) string {
	if s, ok := tagToSubtype[place.PrimaryType()]; ok {
		return s
	}
	for _, tag := range place.Types {
		if s, ok := tagToSubtype[tag]; ok {
			return s
		}
	}
	return Unknown
}

// Group returns the top-level group of a subtype, or Unknown.
func Group(subtype string) string {
	if g, ok := subtypeGroup[subtype]; ok {
		return g
	}
	return Unknown
}

// MatchesFilter reports whether a place belongs under a filter category,
// which may name either a subtype ("restaurant") or a whole group
// ("food_drink").
//
// The primary type matching the filter always passes. A secondary tag
// matching the filter passes only when the place is not mixed-use, so a
// hotel with a tagged restaurant stays out of a restaurant filter while
// a restaurant that also carries a bar tag still matches both.
func MatchesFilter(place *domain.StandardPlace, filterCategory string) bool {
	allowed := filterTags(filterCategory)
	if len(allowed) == 0 {
		return false
	}

	if allowed[place.PrimaryType()] {
		return true
	}

	for _, tag := range place.Types {
		if allowed[tag] {
			return !MixedUse(place)
		}
	}
	return false
}

// MixedUse reports whether a place legitimately spans several category
// groups: either its primary type is in the fixed mixed-use set, or its
// tags bleed into a top-level group other than its primary type's.
func MixedUse(place *domain.StandardPlace) bool {
	primary := place.PrimaryType()
	if mixedUsePrimaries[primary] {
		return true
	}

	primaryGroup, ok := tagToGroup[primary]
	if !ok {
		// Untabled primary: cross-group contamination cannot be judged.
		return false
	}
	for _, tag := range place.Types {
		if g, ok := tagToGroup[tag]; ok && g != primaryGroup {
			return true
		}
	}
	return false
}

// CanonicalTag returns the canonical raw tag for a subtype filter, for
// narrowing a lookup-service query server-side. Group filters and
// unknown names have no single tag.
func CanonicalTag(filter string) (string, bool) {
	if group, ok := subtypeGroup[filter]; ok {
		tags := groups[group][filter]
		if len(tags) > 0 {
			return tags[0], true
		}
	}
	if _, ok := tagToGroup[filter]; ok {
		return filter, true
	}
	return "", false
}

// filterTags resolves a filter name to its allowed tag set. Subtype
// names win over group names; a filter may also be a raw tag itself.
func filterTags(filter string) map[string]bool {
	out := map[string]bool{}
	if group, ok := subtypeGroup[filter]; ok {
		for _, tag := range groups[group][filter] {
			out[tag] = true
		}
		return out
	}
	if tags, ok := groupTags[filter]; ok {
		for _, tag := range tags {
			out[tag] = true
		}
		return out
	}
	if _, ok := tagToGroup[filter]; ok {
		out[filter] = true
	}
	return out
}

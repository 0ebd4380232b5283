package taxonomy_test

import (
	"testing"

	"github.com/samirrijal/wayfound/internal/core/domain"
	"github.com/samirrijal/wayfound/internal/core/taxonomy"
)

func place(primary string, types ...string) *domain.StandardPlace {
	return &domain.StandardPlace{
		PlaceID:         "p1",
		Name:            "Test Place",
		PrimaryCategory: primary,
		Types:           types,
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		place *domain.StandardPlace
		want  string
	}{
		{"primary restaurant", place("restaurant", "restaurant", "point_of_interest"), "restaurant"},
		{"primary coffee shop", place("coffee_shop"), "cafe"},
		{"primary pub", place("pub", "pub", "bar"), "bar"},
		{"primary hotel", place("hotel", "hotel", "lodging"), "lodging"},
		{"untabled primary, tabled tag", place("food", "food", "bakery"), "cafe"},
		{"tag order decides", place("", "gym", "spa"), "fitness"},
		{"generic tags only", place("establishment", "establishment", "point_of_interest"), taxonomy.Unknown},
		{"no tags at all", place(""), taxonomy.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := taxonomy.Classify(tt.place); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGroup(t *testing.T) {
	if g := taxonomy.Group("restaurant"); g != taxonomy.GroupFoodDrink {
		t.Errorf("Group(restaurant) = %q, want %q", g, taxonomy.GroupFoodDrink)
	}
	if g := taxonomy.Group("museum"); g != taxonomy.GroupEntertainmentCulture {
		t.Errorf("Group(museum) = %q, want %q", g, taxonomy.GroupEntertainmentCulture)
	}
	if g := taxonomy.Group("nonsense"); g != taxonomy.Unknown {
		t.Errorf("Group(nonsense) = %q, want %q", g, taxonomy.Unknown)
	}
}

func TestMixedUse(t *testing.T) {
	// Fixed-set primaries are always mixed-use.
	if !taxonomy.MixedUse(place("hotel", "hotel", "lodging")) {
		t.Error("hotel should be mixed-use")
	}
	if !taxonomy.MixedUse(place("shopping_mall", "shopping_mall")) {
		t.Error("shopping_mall should be mixed-use")
	}

	// Cross-group contamination: a gym that carries a cafe tag.
	if !taxonomy.MixedUse(place("gym", "gym", "cafe")) {
		t.Error("gym with a cafe tag should be mixed-use")
	}

	// Same-group secondary tags are fine.
	if taxonomy.MixedUse(place("restaurant", "restaurant", "bar")) {
		t.Error("restaurant with a bar tag is within one group, not mixed-use")
	}

	// Untabled primary cannot be judged for contamination.
	if taxonomy.MixedUse(place("establishment", "establishment", "restaurant")) {
		t.Error("untabled primary should not be flagged mixed-use")
	}
}

func TestMatchesFilterPrimaryAlwaysPasses(t *testing.T) {
	// A mixed-use venue still matches filters naming its own primary.
	hotel := place("hotel", "hotel", "lodging", "restaurant")
	if !taxonomy.MatchesFilter(hotel, "lodging") {
		t.Error("hotel should match the lodging filter via its primary type")
	}
	if !taxonomy.MatchesFilter(hotel, taxonomy.GroupServicesUtilities) {
		t.Error("hotel should match its primary's group filter")
	}
}

func TestMatchesFilterSuppressesMixedUseSecondary(t *testing.T) {
	// Hotel with an in-house restaurant: must stay out of a
	// restaurant filter.
	hotel := place("hotel", "hotel", "lodging", "restaurant")
	if taxonomy.MatchesFilter(hotel, "restaurant") {
		t.Error("hotel with restaurant tag must not match the restaurant filter")
	}
	if taxonomy.MatchesFilter(hotel, taxonomy.GroupFoodDrink) {
		t.Error("hotel with restaurant tag must not match the food_drink group filter")
	}
}

func TestMatchesFilterDualUseWithinGroup(t *testing.T) {
	// A restaurant that is also a bar matches both filters: secondary
	// tags count when the place is not mixed-use.
	resto := place("restaurant", "restaurant", "bar")
	if !taxonomy.MatchesFilter(resto, "restaurant") {
		t.Error("restaurant should match the restaurant filter")
	}
	if !taxonomy.MatchesFilter(resto, "bar") {
		t.Error("restaurant with bar tag should match the bar filter")
	}
}

func TestMatchesFilterUnknownFilter(t *testing.T) {
	if taxonomy.MatchesFilter(place("restaurant", "restaurant"), "spaceport") {
		t.Error("unknown filter must match nothing")
	}
}

func TestCanonicalTag(t *testing.T) {
	if tag, ok := taxonomy.CanonicalTag("cafe"); !ok || tag != "cafe" {
		t.Errorf("CanonicalTag(cafe) = %q, %v", tag, ok)
	}
	if tag, ok := taxonomy.CanonicalTag("food_market"); !ok || tag != "food_court" {
		t.Errorf("CanonicalTag(food_market) = %q, %v", tag, ok)
	}
	// Raw tags pass through.
	if tag, ok := taxonomy.CanonicalTag("sushi_restaurant"); !ok || tag != "sushi_restaurant" {
		t.Errorf("CanonicalTag(sushi_restaurant) = %q, %v", tag, ok)
	}
	if _, ok := taxonomy.CanonicalTag(taxonomy.GroupFoodDrink); ok {
		t.Error("group filters have no canonical tag")
	}
	if _, ok := taxonomy.CanonicalTag("spaceport"); ok {
		t.Error("unknown filters have no canonical tag")
	}
}

package domain

import (
	"encoding/json"
	"time"
)

// ReviewStatus is the review state of a discovered place.
type ReviewStatus string

const (
	StatusUnreviewed         ReviewStatus = "unreviewed"
	StatusSaved              ReviewStatus = "saved"
	StatusDismissedTemporary ReviewStatus = "dismissed_temporary"
	StatusDismissedForever   ReviewStatus = "dismissed_forever"
)

// TemporaryDismissalDuration is how long a temporary dismissal hides a
// place before it resurfaces.
const TemporaryDismissalDuration = 30 * 24 * time.Hour

// DismissalPolicy is the user-level default consulted when a dismiss
// call does not specify a duration.
type DismissalPolicy string

const (
	PolicyAsk              DismissalPolicy = "ask"
	PolicyAlwaysThirtyDays DismissalPolicy = "always_thirty_days"
	PolicyAlwaysForever    DismissalPolicy = "always_forever"
)

// DismissChoice is the duration selected for a single dismissal. The
// zero value defers to the user's DismissalPolicy.
type DismissChoice string

const (
	DismissUnspecified DismissChoice = ""
	DismissThirtyDays  DismissChoice = "thirty_days"
	DismissForever     DismissChoice = "forever"
)

// Discovery pairs one place with one route and tracks its review state.
// There is at most one Discovery per (route, place) pair per user.
type Discovery struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	RouteID          string          `json:"route_id"`
	PlaceID          string          `json:"place_id"`
	Snapshot         StandardPlace   `json:"place_data"`
	Status           ReviewStatus    `json:"status"`
	DiscoveredAt     time.Time       `json:"discovered_at"`
	DecidedAt        *time.Time      `json:"decided_at,omitempty"`
	DismissExpiresAt *time.Time      `json:"dismiss_expires_at,omitempty"`
	Summary          json.RawMessage `json:"summary,omitempty"`
}

// EffectiveStatus returns the status as of now, applying lazy expiry:
// a temporary dismissal whose deadline has passed reads back as
// unreviewed without any explicit undo. Expiry is corrected at read
// time only; there is no background sweep.
func (d *Discovery) EffectiveStatus(now time.Time) ReviewStatus {
	if d.Status == StatusDismissedTemporary && d.DismissExpiresAt != nil && !now.Before(*d.DismissExpiresAt) {
		return StatusUnreviewed
	}
	return d.Status
}

// RouteDiscoverySet is the ordered collection of discoveries belonging
// to one route. Duplicates from racing first-time discoveries are
// collapsed on place ID at read time, keeping the earliest record.
type RouteDiscoverySet struct {
	RouteID     string
	Discoveries []Discovery
}

// NewRouteDiscoverySet builds a set from persisted records,
// deduplicating by place ID.
func NewRouteDiscoverySet(routeID string, records []Discovery) *RouteDiscoverySet {
	seen := make(map[string]bool, len(records))
	set := &RouteDiscoverySet{RouteID: routeID}
	for _, d := range records {
		if seen[d.PlaceID] {
			continue
		}
		seen[d.PlaceID] = true
		set.Discoveries = append(set.Discoveries, d)
	}
	return set
}

// Empty reports whether the route has never been discovered.
func (s *RouteDiscoverySet) Empty() bool {
	return len(s.Discoveries) == 0
}

// Unreviewed returns the discoveries awaiting review as of now,
// including expired temporary dismissals.
func (s *RouteDiscoverySet) Unreviewed(now time.Time) []Discovery {
	var out []Discovery
	for _, d := range s.Discoveries {
		if d.EffectiveStatus(now) == StatusUnreviewed {
			out = append(out, d)
		}
	}
	return out
}

// ByStatus returns the discoveries whose effective status matches.
func (s *RouteDiscoverySet) ByStatus(status ReviewStatus, now time.Time) []Discovery {
	var out []Discovery
	for _, d := range s.Discoveries {
		if d.EffectiveStatus(now) == status {
			out = append(out, d)
		}
	}
	return out
}

// FindByPlace returns the discovery for a place ID, or nil.
func (s *RouteDiscoverySet) FindByPlace(placeID string) *Discovery {
	for i := range s.Discoveries {
		if s.Discoveries[i].PlaceID == placeID {
			return &s.Discoveries[i]
		}
	}
	return nil
}

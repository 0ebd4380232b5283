package domain

import "time"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point carries usable coordinates.
// (0,0) is what a broken payload decodes to, so it is rejected
// along with out-of-range values.
func (p GeoPoint) Valid() bool {
	if p.Lat == 0 && p.Lng == 0 {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// RouteSample is one GPS reading from a completed walk.
type RouteSample struct {
	Location  GeoPoint  `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

// Route is a completed walk supplied by the route recorder.
type Route struct {
	ID      string        `json:"id"`
	UserID  string        `json:"user_id"`
	Samples []RouteSample `json:"samples"`
}

package geospatial

import (
	"math"

	"github.com/samirrijal/wayfound/internal/core/domain"
)

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lng, radiusMeters float64) (minLat, minLng, maxLat, maxLng float64) {
	latDelta := radiusMeters / 111320.0
	lngDelta := radiusMeters / (111320.0 * math.Cos(toRad(lat)))

	return lat - latDelta, lng - lngDelta, lat + latDelta, lng + lngDelta
}

// SampleRoute downsamples a GPS trace to query points spaced at least
// spacingMeters apart along the walk. The first sample is always kept,
// so a route always yields at least one point. Readings without valid
// coordinates are skipped.
func SampleRoute(samples []domain.RouteSample, spacingMeters float64) []domain.GeoPoint {
	var points []domain.GeoPoint
	for _, s := range samples {
		if !s.Location.Valid() {
			continue
		}
		if len(points) == 0 {
			points = append(points, s.Location)
			continue
		}
		last := points[len(points)-1]
		// The spacing box circumscribes the spacing circle, so a
		// reading outside it is already far enough.
		minLat, minLng, maxLat, maxLng := BoundingBox(last.Lat, last.Lng, spacingMeters)
		if s.Location.Lat < minLat || s.Location.Lat > maxLat ||
			s.Location.Lng < minLng || s.Location.Lng > maxLng {
			points = append(points, s.Location)
			continue
		}
		if Haversine(last.Lat, last.Lng, s.Location.Lat, s.Location.Lng) >= spacingMeters {
			points = append(points, s.Location)
		}
	}
	return points
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
